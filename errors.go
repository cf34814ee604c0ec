package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeAccountLocked       = "ACCOUNT_LOCKED"
	TextCodeAccountInactive     = "ACCOUNT_INACTIVE"
	TextCodeAlreadyVerified     = "ALREADY_VERIFIED"
	TextCodeVerificationExpired = "VERIFICATION_EXPIRED"
	TextCodeResendLimit         = "RESEND_LIMIT_EXCEEDED"
	TextCodeEmailTaken          = "EMAIL_TAKEN"
	TextCodePhoneTaken          = "PHONE_TAKEN"
	TextCodeUsernameTaken       = "USERNAME_TAKEN"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeSessionRevoked      = "SESSION_REVOKED"
)

// ErrInvalidCredentials is the generic authentication failure. A missing
// account and a wrong password both collapse into this error so callers
// cannot probe which addresses are registered.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned while the temporary lockout is in effect.
// Unlike ErrInvalidCredentials it is specific: a lock already implies the
// account exists, so the remaining wait time is safe to expose.
var ErrAccountLocked = goerrors.New("account is temporarily locked due to too many failed login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeAccountLocked)

// ErrAccountInactive is returned when the account exists but cannot
// authenticate in its current lifecycle status.
var ErrAccountInactive = goerrors.New("account is not active, verify your email or contact support", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeUnauthorized)

// ErrAlreadyVerified is returned when verification is requested for an
// account whose email was already verified.
var ErrAlreadyVerified = goerrors.New("email is already verified", goerrors.CategoryValidation).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrVerificationNotFound is returned when no account matches the
// presented verification token.
var ErrVerificationNotFound = goerrors.New("invalid verification token", goerrors.CategoryNotFound).
	WithTextCode("VERIFICATION_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrVerificationExpired is returned for tokens past their expiry.
var ErrVerificationExpired = goerrors.New("verification token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeVerificationExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrResendLimit is returned when the hourly verification resend cap
// has been reached.
var ErrResendLimit = goerrors.New("verification email resend limit exceeded", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeResendLimit)

// ErrEmailTaken is returned when the email is used by a non-deleted account.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrPhoneTaken is returned when the phone number is already in use.
var ErrPhoneTaken = goerrors.New("phone number already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodePhoneTaken).
	WithCode(goerrors.CodeConflict)

// ErrUsernameTaken is returned when the derived username collides.
var ErrUsernameTaken = goerrors.New("username already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned for structurally valid but expired JWTs.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for JWTs that fail parsing or signature
// verification, as distinct from merely expired ones.
var ErrTokenMalformed = goerrors.New("token is malformed or has an invalid signature", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionRevoked is returned when a refresh token is valid but its
// session record no longer exists in the session store.
var ErrSessionRevoked = goerrors.New("session has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountNotFound is the repository-level miss for account lookups.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode("ACCOUNT_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

func validationError(field, message string) error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode("VALIDATION_FAILED").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"field": field})
}
