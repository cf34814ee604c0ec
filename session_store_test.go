package accounts_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreCreateAndValidate(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	cache := accounts.NewMemoryCache(accounts.WithMemoryCacheClock(clock.Now))
	store := accounts.NewCacheSessionStore(cache, 7*24*time.Hour,
		accounts.WithSessionClock(clock.Now),
	)

	ctx := context.Background()
	user := &accounts.User{ID: 42, Email: "jane@example.com"}
	device := accounts.DeviceInfo{UserAgent: "test-agent", IPAddress: "203.0.113.7"}

	record, err := store.Create(ctx, user, device)
	require.NoError(t, err)
	assert.NotEmpty(t, record.SessionID)
	assert.Equal(t, int64(42), record.UserID)
	assert.Equal(t, "jane@example.com", record.Email)
	assert.Equal(t, "test-agent", record.UserAgent)
	assert.Equal(t, clock.Now(), record.CreatedAt)

	loaded, err := store.Validate(ctx, record.SessionID)
	require.NoError(t, err)
	assert.Equal(t, record.SessionID, loaded.SessionID)
	assert.Equal(t, record.UserID, loaded.UserID)
	assert.Equal(t, record.IPAddress, loaded.IPAddress)
}

func TestSessionStoreExpiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	cache := accounts.NewMemoryCache(accounts.WithMemoryCacheClock(clock.Now))
	store := accounts.NewCacheSessionStore(cache, time.Hour,
		accounts.WithSessionClock(clock.Now),
	)

	ctx := context.Background()
	record, err := store.Create(ctx, &accounts.User{ID: 1, Email: "a@example.com"}, accounts.DeviceInfo{})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = store.Validate(ctx, record.SessionID)
	assert.ErrorIs(t, err, accounts.ErrSessionRevoked)
}

func TestSessionStoreDeleteIdempotent(t *testing.T) {
	t.Parallel()

	cache := accounts.NewMemoryCache()
	store := accounts.NewCacheSessionStore(cache, time.Hour)

	ctx := context.Background()
	record, err := store.Create(ctx, &accounts.User{ID: 1, Email: "a@example.com"}, accounts.DeviceInfo{})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, record.SessionID))

	_, err = store.Validate(ctx, record.SessionID)
	assert.ErrorIs(t, err, accounts.ErrSessionRevoked)

	// second delete is a no-op
	assert.NoError(t, store.Delete(ctx, record.SessionID))
	assert.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestSessionStoreUnknownSession(t *testing.T) {
	t.Parallel()

	store := accounts.NewCacheSessionStore(accounts.NewMemoryCache(), time.Hour)

	_, err := store.Validate(context.Background(), "unknown")
	assert.ErrorIs(t, err, accounts.ErrSessionRevoked)
}
