package accounts

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// UserRole is the user's authorization tier
type UserRole = string

const (
	// RoleCustomer is the default role assigned at registration
	RoleCustomer UserRole = "customer"
	// RoleAdmin is the administrative role
	RoleAdmin UserRole = "admin"
)

// UserStatus is the account lifecycle status
type UserStatus = string

const (
	// UserStatusPending marks accounts awaiting email verification
	UserStatusPending UserStatus = "pending"
	// UserStatusActive marks verified, usable accounts
	UserStatusActive UserStatus = "active"
	// UserStatusInactive marks administratively disabled accounts
	UserStatusInactive UserStatus = "inactive"
)

// User is the account model
type User struct {
	bun.BaseModel            `bun:"table:users,alias:usr"`
	ID                       int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Role                     UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName                string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName                 string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username                 string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email                    string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                    string     `bun:"phone_number" json:"phone_number,omitempty"`
	Avatar                   string     `bun:"avatar" json:"avatar,omitempty"`
	PasswordHash             string     `bun:"password_hash" json:"-"`
	DateOfBirth              *time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	Status                   UserStatus `bun:"status,notnull" json:"status,omitempty"`
	FailedLoginAttempts      int        `bun:"failed_login_attempts" json:"failed_login_attempts,omitempty"`
	LastFailedLoginAt        *time.Time `bun:"last_failed_login_at,nullzero" json:"last_failed_login_at,omitempty"`
	AccountLockedUntil       *time.Time `bun:"account_locked_until,nullzero" json:"account_locked_until,omitempty"`
	LastLoginAt              *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	VerificationToken        string     `bun:"verification_token,nullzero" json:"-"`
	VerificationTokenExpiry  *time.Time `bun:"verification_token_expiry,nullzero" json:"-"`
	EmailVerifiedAt          *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	VerificationResendCount  int        `bun:"verification_resend_count" json:"-"`
	LastVerificationResendAt *time.Time `bun:"last_verification_resend_at,nullzero" json:"-"`
	IsDeleted                bool       `bun:"is_deleted" json:"is_deleted,omitempty"`
	CreatedAt                *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt                *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt                *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value so legacy rows behave as pending
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

// IsVerified reports whether email verification completed
func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

// IsLocked reports whether the account lock is still in effect.
// A lock expiry in the past is equivalent to no lock.
func (u *User) IsLocked(now time.Time) bool {
	return u.AccountLockedUntil != nil && now.Before(*u.AccountLockedUntil)
}

// IsActive reports whether the account completed verification and
// has not been administratively disabled
func (u *User) IsActive() bool {
	u.EnsureStatus()
	return u.Status == UserStatusActive
}

// DisplayName joins first and last name, trimming the single-token case
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile returns the cacheable projection exposed to callers
func (u *User) Profile() *Profile {
	u.EnsureStatus()
	return &Profile{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		FullName: u.DisplayName(),
		Role:     u.Role,
		Status:   u.Status,
	}
}

// Profile is the minimal user projection returned from login and
// profile reads, and the payload stored in the profile cache.
type Profile struct {
	ID       int64      `json:"id"`
	Email    string     `json:"email"`
	Username string     `json:"username,omitempty"`
	FullName string     `json:"full_name"`
	Role     UserRole   `json:"role"`
	Status   UserStatus `json:"status,omitempty"`
}

// TokenPair carries the signed access and refresh tokens for a session
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// DeviceInfo is optional client metadata attached to login events
type DeviceInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}
