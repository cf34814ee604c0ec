package accounts

import (
	"context"
	"time"
)

// Lifecycle event topics
const (
	TopicUserRegistered = "user.registered"
	TopicUserLoggedIn   = "user.logged_in"
)

// UserRegisteredEvent announces a new pending account so downstream
// consumers can send the verification email.
type UserRegisteredEvent struct {
	UserID            int64     `json:"user_id"`
	Email             string    `json:"email"`
	DisplayName       string    `json:"display_name"`
	VerificationToken string    `json:"verification_token"`
	CreatedAt         time.Time `json:"created_at"`
}

// UserLoggedInEvent announces a successful authentication
type UserLoggedInEvent struct {
	UserID     int64       `json:"user_id"`
	Email      string      `json:"email"`
	SessionID  string      `json:"session_id"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// EventPublisher emits lifecycle events. Publishing is best effort,
// callers log failures and continue, a dropped event never rolls back
// the operation that produced it.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error
	PublishUserLoggedIn(ctx context.Context, event UserLoggedInEvent) error
}

// NoopPublisher discards all events. Useful for tests and deployments
// without a broker.
type NoopPublisher struct{}

var _ EventPublisher = NoopPublisher{}

func (NoopPublisher) PublishUserRegistered(context.Context, UserRegisteredEvent) error { return nil }
func (NoopPublisher) PublishUserLoggedIn(context.Context, UserLoggedInEvent) error     { return nil }
