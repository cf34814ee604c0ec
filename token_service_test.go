package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, clock *fakeClock) *accounts.TokenServiceImpl {
	t.Helper()

	accessKeys, err := accounts.GenerateTokenKeys()
	require.NoError(t, err)
	refreshKeys, err := accounts.GenerateTokenKeys()
	require.NoError(t, err)

	ts, err := accounts.NewTokenService(
		accessKeys,
		refreshKeys,
		15*time.Minute,
		7*24*time.Hour,
		"accounts-test",
		accounts.WithTokenClock(clock.Now),
	)
	require.NoError(t, err)

	return ts
}

func TestTokenServiceIssuePair(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(t, clock)

	pair, err := ts.IssuePair(42, "session-1")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, int64(15*60), pair.ExpiresIn)

	access, err := ts.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), access.UserID)
	assert.Equal(t, "session-1", access.SessionID)
	assert.Equal(t, accounts.TokenTypeAccess, access.TokenType)
	// NumericDate round trips lose the Location, compare instants
	assert.True(t, clock.Now().Add(15*time.Minute).Equal(access.Expires()))

	refresh, err := ts.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), refresh.UserID)
	assert.Equal(t, "session-1", refresh.SessionID)
	assert.Equal(t, accounts.TokenTypeRefresh, refresh.TokenType)
	assert.True(t, clock.Now().Add(7*24*time.Hour).Equal(refresh.Expires()))
}

func TestTokenServiceRejectsCrossUse(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(t, clock)

	pair, err := ts.IssuePair(42, "session-1")
	require.NoError(t, err)

	// tokens are signed with distinct keys, so cross-validation fails at
	// the signature before the token_type check can even run
	_, err = ts.ValidateAccess(pair.RefreshToken)
	assertMalformedToken(t, err)

	_, err = ts.ValidateRefresh(pair.AccessToken)
	assertMalformedToken(t, err)
}

func TestTokenServiceExpired(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(t, clock)

	pair, err := ts.IssuePair(42, "session-1")
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)

	_, err = ts.ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, accounts.ErrTokenExpired)

	// the refresh token has a longer TTL and is still good
	_, err = ts.ValidateRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	clock.Advance(8 * 24 * time.Hour)

	_, err = ts.ValidateRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, accounts.ErrTokenExpired)
}

func TestTokenServiceMalformed(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(t, clock)

	for _, token := range []string{
		"",
		"not.a.token",
		"garbage",
	} {
		_, err := ts.ValidateAccess(token)
		assertMalformedToken(t, err)
	}
}

func TestTokenServiceForeignKey(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(t, clock)
	other := newTestTokenService(t, clock)

	pair, err := other.IssuePair(42, "session-1")
	require.NoError(t, err)

	_, err = ts.ValidateAccess(pair.AccessToken)
	assertMalformedToken(t, err)
}

func assertMalformedToken(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, accounts.TextCodeTokenMalformed, richErr.TextCode)
}
