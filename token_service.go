package accounts

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and verifies the access/refresh token pair issued
// at login. Access and refresh tokens use distinct RSA key material so
// a leaked refresh verification key cannot validate access tokens.
type TokenService interface {
	IssuePair(userID int64, sessionID string) (*TokenPair, error)
	ValidateAccess(token string) (*Claims, error)
	ValidateRefresh(token string) (*Claims, error)
}

// TokenKeys holds one PEM encoded RSA key pair
type TokenKeys struct {
	PrivatePEM string
	PublicPEM  string
}

// TokenServiceImpl implements TokenService with RS256 signing
type TokenServiceImpl struct {
	accessPrivate  *rsa.PrivateKey
	accessPublic   *rsa.PublicKey
	refreshPrivate *rsa.PrivateKey
	refreshPublic  *rsa.PublicKey
	accessTTL      time.Duration
	refreshTTL     time.Duration
	issuer         string
	logger         Logger
	now            func() time.Time
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceOption customizes token service construction
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenLogger overrides the logger used for validation failures
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenClock injects a custom clock (useful for tests)
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// NewTokenService parses both key pairs and returns a ready service.
// TTLs are process-wide configuration, not per-call parameters.
func NewTokenService(access, refresh TokenKeys, accessTTL, refreshTTL time.Duration, issuer string, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	accessPriv, accessPub, err := parseKeyPair(access)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse access token keys")
	}

	refreshPriv, refreshPub, err := parseKeyPair(refresh)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse refresh token keys")
	}

	ts := &TokenServiceImpl{
		accessPrivate:  accessPriv,
		accessPublic:   accessPub,
		refreshPrivate: refreshPriv,
		refreshPublic:  refreshPub,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
		issuer:         issuer,
		logger:         defLogger{},
		now:            time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// IssuePair signs a fresh access and refresh token carrying the same
// session id with their configured TTLs.
func (ts *TokenServiceImpl) IssuePair(userID int64, sessionID string) (*TokenPair, error) {
	now := ts.now()

	access, err := ts.sign(newClaims(ts.issuer, userID, sessionID, TokenTypeAccess, ts.accessTTL, now, uuid.New().String()), ts.accessPrivate)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	refresh, err := ts.sign(newClaims(ts.issuer, userID, sessionID, TokenTypeRefresh, ts.refreshTTL, now, uuid.New().String()), ts.refreshPrivate)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(ts.accessTTL.Seconds()),
	}, nil
}

// ValidateAccess verifies an access token, distinguishing expired from
// malformed or wrongly signed tokens.
func (ts *TokenServiceImpl) ValidateAccess(token string) (*Claims, error) {
	return ts.validate(token, ts.accessPublic, TokenTypeAccess)
}

// ValidateRefresh verifies a refresh token
func (ts *TokenServiceImpl) ValidateRefresh(token string) (*Claims, error) {
	return ts.validate(token, ts.refreshPublic, TokenTypeRefresh)
}

func (ts *TokenServiceImpl) sign(claims *Claims, key *rsa.PrivateKey) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

func (ts *TokenServiceImpl) validate(tokenString string, key *rsa.PublicKey, wantType TokenType) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		ts.logger.Error("token validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	if claims.TokenType != wantType {
		return nil, ErrTokenMalformed.WithMetadata(map[string]any{
			"token_type": claims.TokenType,
		})
	}

	return claims, nil
}

func parseKeyPair(keys TokenKeys) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privBlock, _ := pem.Decode([]byte(keys.PrivatePEM))
	if privBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode private key PEM")
	}

	priv, err := x509.ParsePKCS1PrivateKey(privBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	pubBlock, _ := pem.Decode([]byte(keys.PublicPEM))
	if pubBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode public key PEM")
	}

	pubAny, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	pub, ok := pubAny.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("not an RSA public key")
	}

	return priv, pub, nil
}

// GenerateTokenKeys creates a fresh RSA key pair in PEM form. Meant for
// development and tests, production keys come from key management.
func GenerateTokenKeys() (TokenKeys, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return TokenKeys{}, fmt.Errorf("failed to generate private key: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return TokenKeys{}, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return TokenKeys{
		PrivatePEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(priv),
		})),
		PublicPEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PUBLIC KEY",
			Bytes: pubBytes,
		})),
	}, nil
}
