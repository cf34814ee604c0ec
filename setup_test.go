package accounts_test

import (
	"database/sql"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateUsers = `CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_role TEXT NOT NULL,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    phone_number TEXT,
    avatar TEXT,
    password_hash TEXT,
    date_of_birth TIMESTAMP NULL,
    status TEXT NOT NULL,
    failed_login_attempts INTEGER NOT NULL DEFAULT 0,
    last_failed_login_at TIMESTAMP NULL,
    account_locked_until TIMESTAMP NULL,
    last_login_at TIMESTAMP NULL,
    verification_token TEXT,
    verification_token_expiry TIMESTAMP NULL,
    email_verified_at TIMESTAMP NULL,
    verification_resend_count INTEGER NOT NULL DEFAULT 0,
    last_verification_resend_at TIMESTAMP NULL,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}

// fastArgonParams keeps hashing cheap so the service tests stay quick
func fastArgonParams() accounts.Argon2Params {
	return accounts.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

type serviceFixture struct {
	svc       *accounts.Accounts
	repo      accounts.RepositoryManager
	cache     *accounts.MemoryCache
	publisher *capturePublisher
	clock     *fakeClock
	tokens    accounts.TokenService
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func setupService(t *testing.T, cfg accounts.Config) *serviceFixture {
	t.Helper()

	db := setupTestDB(t)

	clock := &fakeClock{current: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}

	// the repository stamps timestamps itself, it needs the same clock
	repo := accounts.NewRepositoryManager(db, accounts.WithUsers(
		accounts.NewUsersRepository(db, accounts.WithUsersClock(clock.Now)),
	))

	hasher := accounts.NewArgon2Hasher(accounts.WithArgon2Params(fastArgonParams()))
	t.Cleanup(hasher.Close)

	accessKeys, err := accounts.GenerateTokenKeys()
	require.NoError(t, err)
	refreshKeys, err := accounts.GenerateTokenKeys()
	require.NoError(t, err)

	defaults := accounts.DefaultConfig()
	tokens, err := accounts.NewTokenService(
		accessKeys,
		refreshKeys,
		defaults.AccessTokenTTL,
		defaults.RefreshTokenTTL,
		"accounts-test",
		accounts.WithTokenClock(clock.Now),
	)
	require.NoError(t, err)

	cache := accounts.NewMemoryCache(accounts.WithMemoryCacheClock(clock.Now))
	publisher := &capturePublisher{}

	svc, err := accounts.New(cfg, repo, hasher, tokens, cache,
		accounts.WithClock(clock.Now),
		accounts.WithEventPublisher(publisher),
	)
	require.NoError(t, err)

	return &serviceFixture{
		svc:       svc,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		clock:     clock,
		tokens:    tokens,
	}
}
