package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access from refresh tokens so one cannot be
// presented in place of the other.
type TokenType = string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the unit signed into both access and refresh tokens. Both
// carry the same session id so a session can be revoked in the session
// store independent of token expiry.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"sid"`
	TokenType TokenType `json:"token_type"`
}

// Expires returns the expiration time, zero when absent
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued-at time, zero when absent
func (c *Claims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func newClaims(issuer string, userID int64, sessionID string, tokenType TokenType, ttl time.Duration, now time.Time, jti string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		UserID:    userID,
		SessionID: sessionID,
		TokenType: tokenType,
	}
}
