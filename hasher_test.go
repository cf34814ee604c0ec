package accounts_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHasher(t *testing.T) *accounts.Argon2Hasher {
	t.Helper()
	hasher := accounts.NewArgon2Hasher(accounts.WithArgon2Params(fastArgonParams()))
	t.Cleanup(hasher.Close)
	return hasher
}

func TestArgon2HasherRoundTrip(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	encoded, err := hasher.Hash(ctx, "Valid1Pass!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	assert.NoError(t, hasher.Compare(ctx, "Valid1Pass!", encoded))
}

func TestArgon2HasherMismatch(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	encoded, err := hasher.Hash(ctx, "Valid1Pass!")
	require.NoError(t, err)

	err = hasher.Compare(ctx, "Wrong1Pass!", encoded)
	assert.ErrorIs(t, err, accounts.ErrPasswordMismatch)
}

func TestArgon2HasherMalformedHash(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$not$argon$at$all",
		"$argon2id$v=19$m=8192,t=1,p=1$notbase64!!$alsonot!!",
	} {
		err := hasher.Compare(ctx, "Valid1Pass!", encoded)
		assert.ErrorIs(t, err, accounts.ErrMalformedHash, "hash: %q", encoded)
	}
}

func TestArgon2HasherUniqueSalts(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	first, err := hasher.Hash(ctx, "Valid1Pass!")
	require.NoError(t, err)
	second, err := hasher.Hash(ctx, "Valid1Pass!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2HasherConcurrent(t *testing.T) {
	t.Parallel()

	hasher := accounts.NewArgon2Hasher(
		accounts.WithArgon2Params(fastArgonParams()),
		accounts.WithHasherWorkers(2),
	)
	t.Cleanup(hasher.Close)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 8)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			encoded, err := hasher.Hash(ctx, "Valid1Pass!")
			if err != nil {
				errs <- err
				return
			}
			errs <- hasher.Compare(ctx, "Valid1Pass!", encoded)
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestArgon2HasherContextCancelled(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hasher.Hash(ctx, "Valid1Pass!")
	assert.Error(t, err)
}

func TestArgon2HasherClosed(t *testing.T) {
	t.Parallel()

	hasher := accounts.NewArgon2Hasher(accounts.WithArgon2Params(fastArgonParams()))
	hasher.Close()

	// give the workers a beat to observe the close and drain out
	time.Sleep(20 * time.Millisecond)

	_, err := hasher.Hash(context.Background(), "Valid1Pass!")
	assert.Error(t, err)
}
