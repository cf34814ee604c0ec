package accounts

import (
	"errors"
	"time"
)

// Config carries the tunable policy knobs for the accounts service.
// Zero values are filled from DefaultConfig at construction.
type Config struct {
	// Issuer stamped into every JWT
	Issuer string

	// AccessTokenTTL bounds the lifetime of access tokens
	AccessTokenTTL time.Duration
	// RefreshTokenTTL bounds the lifetime of refresh tokens
	RefreshTokenTTL time.Duration
	// SessionTTL bounds the server side session record, it should not
	// be shorter than RefreshTokenTTL or refresh tokens outlive their
	// sessions
	SessionTTL time.Duration

	// Lockout is the failed login policy
	Lockout LockPolicy

	// VerificationTokenTTL bounds email verification tokens
	VerificationTokenTTL time.Duration
	// VerificationResendLimit caps resend requests per window
	VerificationResendLimit int
	// VerificationResendWindow is the resend counting window
	VerificationResendWindow time.Duration

	// ProfileCacheTTL bounds cached profile entries
	ProfileCacheTTL time.Duration

	// PublishTimeout bounds each lifecycle event publish
	PublishTimeout time.Duration

	// MinPasswordLength is the registration password floor
	MinPasswordLength int
	// MaxNameLength caps the full name field
	MaxNameLength int
	// MinimumAge is the youngest allowed account holder in years
	MinimumAge int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Issuer:          "accounts",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		SessionTTL:      7 * 24 * time.Hour,
		Lockout: LockPolicy{
			MaxAttempts:  5,
			Window:       15 * time.Minute,
			LockDuration: 30 * time.Minute,
		},
		VerificationTokenTTL:     24 * time.Hour,
		VerificationResendLimit:  3,
		VerificationResendWindow: time.Hour,
		ProfileCacheTTL:          time.Hour,
		PublishTimeout:           5 * time.Second,
		MinPasswordLength:        8,
		MaxNameLength:            100,
		MinimumAge:               13,
	}
}

// Validate rejects configurations that would lock every account out or
// issue tokens that outlive their sessions.
func (c Config) Validate() error {
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("config: lockout max attempts must be at least 1")
	}
	if c.Lockout.Window <= 0 || c.Lockout.LockDuration <= 0 {
		return errors.New("config: lockout window and duration must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.SessionTTL < c.RefreshTokenTTL {
		return errors.New("config: session TTL must not be shorter than refresh token TTL")
	}
	if c.MinPasswordLength < 1 {
		return errors.New("config: minimum password length must be at least 1")
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.Issuer == "" {
		c.Issuer = def.Issuer
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = def.AccessTokenTTL
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = def.RefreshTokenTTL
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = def.SessionTTL
	}
	if c.Lockout.MaxAttempts == 0 {
		c.Lockout.MaxAttempts = def.Lockout.MaxAttempts
	}
	if c.Lockout.Window == 0 {
		c.Lockout.Window = def.Lockout.Window
	}
	if c.Lockout.LockDuration == 0 {
		c.Lockout.LockDuration = def.Lockout.LockDuration
	}
	if c.VerificationTokenTTL == 0 {
		c.VerificationTokenTTL = def.VerificationTokenTTL
	}
	if c.VerificationResendLimit == 0 {
		c.VerificationResendLimit = def.VerificationResendLimit
	}
	if c.VerificationResendWindow == 0 {
		c.VerificationResendWindow = def.VerificationResendWindow
	}
	if c.ProfileCacheTTL == 0 {
		c.ProfileCacheTTL = def.ProfileCacheTTL
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = def.PublishTimeout
	}
	if c.MinPasswordLength == 0 {
		c.MinPasswordLength = def.MinPasswordLength
	}
	if c.MaxNameLength == 0 {
		c.MaxNameLength = def.MaxNameLength
	}
	if c.MinimumAge == 0 {
		c.MinimumAge = def.MinimumAge
	}

	return c
}
