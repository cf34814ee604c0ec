package accounts

import (
	"math"
	"time"
)

// LockPolicy decides when repeated authentication failures lock an
// account. Failed attempts accumulate toward MaxAttempts inside the
// rolling Window; attempts older than the window no longer count.
type LockPolicy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// LockDecision is the outcome of evaluating a failed attempt
type LockDecision struct {
	// Attempts is the failure count including the attempt being recorded,
	// after any window reset
	Attempts int
	Locked   bool
	// LockedUntil is set only when Locked is true
	LockedUntil *time.Time
}

// EffectiveAttempts returns the stored counter adjusted for the lockout
// window: a last failure at or before the window boundary resets the
// count to zero for this decision. The stored counter itself is only
// reset by the caller on successful login.
func (p LockPolicy) EffectiveAttempts(failedAttempts int, lastFailedAt *time.Time, now time.Time) int {
	if lastFailedAt != nil && !lastFailedAt.After(now.Add(-p.Window)) {
		return 0
	}
	return failedAttempts
}

// OnFailedAttempt records one more failure against the stored counters
// and decides whether the account crosses the lock threshold.
func (p LockPolicy) OnFailedAttempt(failedAttempts int, lastFailedAt *time.Time, now time.Time) LockDecision {
	attempts := p.EffectiveAttempts(failedAttempts, lastFailedAt, now) + 1

	decision := LockDecision{Attempts: attempts}
	if attempts >= p.MaxAttempts {
		until := now.Add(p.LockDuration)
		decision.Locked = true
		decision.LockedUntil = &until
	}

	return decision
}

// AccountMustNotBeLocked fails while the lock expiry is still in the
// future, reporting the remaining minutes. It runs before password
// verification so locked accounts never reach the hasher.
func AccountMustNotBeLocked(lockedUntil *time.Time, now time.Time) error {
	if lockedUntil == nil || !now.Before(*lockedUntil) {
		return nil
	}

	remaining := int(math.Ceil(lockedUntil.Sub(now).Minutes()))
	return ErrAccountLocked.WithMetadata(map[string]any{
		"retry_in_minutes": remaining,
	})
}
