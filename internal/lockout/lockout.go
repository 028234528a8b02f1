// Package lockout decides when an account is locked after failed logins.
//
// The engine is pure: it takes the persisted State, the current time and
// the verification outcome, and returns the next State plus the Action the
// caller must carry out. Persisting the state and dispatching alerts are
// left to the caller, which must serialize calls per account.
//
// Expiry is lazy. A lock that has run out is cleared by the first attempt
// that observes it; nothing runs in the background.
package lockout

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultThreshold    = 2
	DefaultLockDuration = 15 * time.Minute
)

// ErrLocked is matched by every *LockedError.
var ErrLocked = errors.New("account temporarily locked")

// LockedError is returned by Admit while the account is locked.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account temporarily locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool { return target == ErrLocked }

// RetryAfter returns how long the caller should wait, rounded up to whole
// seconds and never below one second.
func (e *LockedError) RetryAfter(now time.Time) time.Duration {
	d := e.Until.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// Action is what the caller has to do after a decision.
type Action int

const (
	// ActionNone requires nothing beyond persisting the new state.
	ActionNone Action = iota
	// ActionLockAlert marks the unlocked to locked transition. The caller
	// dispatches exactly one security alert for it.
	ActionLockAlert
	// ActionUnlockRetry means a stale lock was cleared and the attempt
	// should be evaluated as if the account had never been locked.
	ActionUnlockRetry
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionLockAlert:
		return "lock+alert"
	case ActionUnlockRetry:
		return "unlock+retry"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// State is the lockout-relevant part of an account.
type State struct {
	FailedAttempts int
	LockUntil      *time.Time
}

// Locked reports whether s is inside a lockout window at now.
func (s State) Locked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// Policy holds the tunables. The zero value is not usable; use Default or
// fill both fields.
type Policy struct {
	// Threshold is the number of consecutive failures that locks the
	// account. Failures never decay with time.
	Threshold int
	// LockDuration is how long a lock lasts. It is applied once, at the
	// transition, and never extended.
	LockDuration time.Duration
}

// Default returns the policy of two failures and a fifteen minute lock.
func Default() Policy {
	return Policy{Threshold: DefaultThreshold, LockDuration: DefaultLockDuration}
}

// Validate rejects policies that could never lock or never unlock.
func (p Policy) Validate() error {
	if p.Threshold < 1 {
		return fmt.Errorf("lock threshold must be at least 1, got %d", p.Threshold)
	}
	if p.LockDuration <= 0 {
		return fmt.Errorf("lock duration must be positive, got %s", p.LockDuration)
	}
	return nil
}

// Admit runs before any password verification. While locked it returns a
// *LockedError and leaves the state untouched; the password must not be
// checked in that case. A lock that has expired is cleared together with
// the failure counter.
func (p Policy) Admit(s State, now time.Time) (State, Action, error) {
	if s.LockUntil == nil {
		return s, ActionNone, nil
	}
	if s.Locked(now) {
		return s, ActionNone, &LockedError{Until: *s.LockUntil}
	}
	return State{}, ActionUnlockRetry, nil
}

// Record applies a verification outcome to an admitted state. Success
// resets everything. A failure increments the counter and, when it reaches
// the threshold, starts the lock.
func (p Policy) Record(s State, now time.Time, verified bool) (State, Action) {
	if verified {
		return State{}, ActionNone
	}

	next := State{FailedAttempts: s.FailedAttempts + 1}
	if next.FailedAttempts >= p.Threshold {
		until := now.Add(p.LockDuration)
		next.LockUntil = &until
		return next, ActionLockAlert
	}
	return next, ActionNone
}
