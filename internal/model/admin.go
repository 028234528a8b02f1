package model

import (
	"strings"
	"time"
)

// Admin is the back-office account. There is normally exactly one per
// deployment, but it is keyed by ID and email like any other entity.
// Passwords are stored as bcrypt hashes.
type Admin struct {
	ID                  string     `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	FailedLoginAttempts int        `json:"-" db:"failed_login_attempts"`
	LockUntil           *time.Time `json:"-" db:"lock_until"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	Version             int64      `json:"-" db:"version"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// IsLocked reports whether the account is inside a lockout window at now.
func (a *Admin) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// NormalizeEmail trims and lower-cases an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
