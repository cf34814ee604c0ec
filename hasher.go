package accounts

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// ErrPasswordMismatch reports a hash/password mismatch from the hasher.
// The login flow translates it into ErrInvalidCredentials.
var ErrPasswordMismatch = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// ErrMalformedHash reports a stored hash the hasher cannot parse
var ErrMalformedHash = goerrors.New("stored password hash is malformed", goerrors.CategoryInternal).
	WithTextCode("MALFORMED_HASH")

// PasswordHasher performs one-way password hashing and verification.
// Both operations are CPU-bound and run on a dedicated worker pool so
// they never execute on the caller's goroutine.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, password, encodedHash string) error
}

// Argon2Params defines the Argon2id cost parameters
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params follows the OWASP 2023 recommendation
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher hashes passwords with Argon2id on a bounded pool of
// worker goroutines. Callers block until their job completes or their
// context is done.
type Argon2Hasher struct {
	params  Argon2Params
	jobs    chan func()
	done    chan struct{}
	workers int
}

var _ PasswordHasher = (*Argon2Hasher)(nil)

// Argon2Option customizes hasher construction
type Argon2Option func(*Argon2Hasher)

// WithArgon2Params overrides the cost parameters
func WithArgon2Params(params Argon2Params) Argon2Option {
	return func(h *Argon2Hasher) {
		h.params = params
	}
}

// WithHasherWorkers bounds the worker pool size
func WithHasherWorkers(n int) Argon2Option {
	return func(h *Argon2Hasher) {
		if n > 0 {
			h.workers = n
		}
	}
}

// NewArgon2Hasher starts the worker pool and returns a ready hasher.
// Call Close to stop the workers.
func NewArgon2Hasher(opts ...Argon2Option) *Argon2Hasher {
	h := &Argon2Hasher{
		params:  DefaultArgon2Params(),
		done:    make(chan struct{}),
		workers: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	h.jobs = make(chan func())
	for i := 0; i < h.workers; i++ {
		go h.worker()
	}

	return h
}

// Close stops the worker pool. Pending jobs finish, new calls fail.
func (h *Argon2Hasher) Close() {
	close(h.done)
}

func (h *Argon2Hasher) worker() {
	for {
		select {
		case <-h.done:
			return
		case job := <-h.jobs:
			job()
		}
	}
}

// submit runs fn on the pool and blocks until it completes or ctx is done
func (h *Argon2Hasher) submit(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	job := func() {
		result <- fn()
	}

	select {
	case h.jobs <- job:
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled waiting for hash worker")
	case <-h.done:
		return goerrors.New("password hasher is closed", goerrors.CategoryInternal)
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password hashing")
	}
}

// Hash generates a salted Argon2id hash in the standard encoded form
// $argon2id$v=19$m=...,t=...,p=...$salt$hash
func (h *Argon2Hasher) Hash(ctx context.Context, password string) (string, error) {
	var encoded string
	err := h.submit(ctx, func() error {
		var hashErr error
		encoded, hashErr = hashArgon2(password, h.params)
		return hashErr
	})
	return encoded, err
}

// Compare verifies password against an encoded hash. A mismatch returns
// ErrPasswordMismatch, an unparseable hash returns ErrMalformedHash.
func (h *Argon2Hasher) Compare(ctx context.Context, password, encodedHash string) error {
	return h.submit(ctx, func() error {
		return compareArgon2(password, encodedHash)
	})
}

func hashArgon2(password string, params Argon2Params) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Iterations,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func compareArgon2(password, encodedHash string) error {
	params, salt, key, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return err
	}

	other := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(key, other) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func decodeArgon2Hash(encodedHash string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, ErrMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, ErrMalformedHash
	}
	params.SaltLength = uint32(len(salt))

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, ErrMalformedHash
	}
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}
