package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const sessionKeyPrefix = "refresh_token:session:"

// SessionRecord is the server side state kept for each login. Presenting
// a refresh token whose session id has no record means the session was
// revoked or expired.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore creates and revokes login sessions
type SessionStore interface {
	Create(ctx context.Context, user *User, device DeviceInfo) (*SessionRecord, error)
	Validate(ctx context.Context, sessionID string) (*SessionRecord, error)

	// Delete revokes a session. Revoking an unknown session id is a
	// no-op so logout stays idempotent.
	Delete(ctx context.Context, sessionID string) error
}

// CacheSessionStore keeps sessions in a Cache with the configured TTL
type CacheSessionStore struct {
	cache  Cache
	ttl    time.Duration
	logger Logger
	now    func() time.Time
	newID  func() string
}

var _ SessionStore = (*CacheSessionStore)(nil)

// SessionStoreOption customizes session store construction
type SessionStoreOption func(*CacheSessionStore)

// WithSessionLogger overrides the session store logger
func WithSessionLogger(logger Logger) SessionStoreOption {
	return func(s *CacheSessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionClock injects a custom clock for session timestamps
func WithSessionClock(clock func() time.Time) SessionStoreOption {
	return func(s *CacheSessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSessionIDGenerator overrides session id generation
func WithSessionIDGenerator(gen func() string) SessionStoreOption {
	return func(s *CacheSessionStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func NewCacheSessionStore(cache Cache, ttl time.Duration, opts ...SessionStoreOption) *CacheSessionStore {
	s := &CacheSessionStore{
		cache:  cache,
		ttl:    ttl,
		logger: defLogger{},
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *CacheSessionStore) Create(ctx context.Context, user *User, device DeviceInfo) (*SessionRecord, error) {
	record := &SessionRecord{
		SessionID: s.newID(),
		UserID:    user.ID,
		Email:     user.Email,
		UserAgent: device.UserAgent,
		IPAddress: device.IPAddress,
		CreatedAt: s.now(),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode session record")
	}

	if err := s.cache.Set(ctx, sessionKey(record.SessionID), payload, s.ttl); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store session record")
	}

	return record, nil
}

func (s *CacheSessionStore) Validate(ctx context.Context, sessionID string) (*SessionRecord, error) {
	payload, found, err := s.cache.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session record")
	}

	if !found {
		return nil, ErrSessionRevoked
	}

	record := &SessionRecord{}
	if err := json.Unmarshal(payload, record); err != nil {
		s.logger.Error("session store found undecodable record", "session_id", sessionID)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode session record")
	}

	return record, nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, sessionID string) error {
	removed, err := s.cache.Delete(ctx, sessionKey(sessionID))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete session record")
	}

	if !removed {
		s.logger.Debug("session store delete found no record", "session_id", sessionID)
	}

	return nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, sessionID)
}
