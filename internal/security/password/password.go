// Package password wraps bcrypt for hashing and verifying admin passwords.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used when none is configured.
	DefaultCost    = 12
	minPasswordLen = 8
)

var (
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrHashing reports that a stored hash could not be used at all. It is
	// never returned for a plain mismatch.
	ErrHashing = errors.New("password hashing failed")
)

// Hasher hashes and verifies passwords with a fixed bcrypt cost.
type Hasher struct {
	Cost int
}

// New returns a Hasher for cost, clamped to bcrypt's accepted range.
func New(cost int) Hasher {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return Hasher{Cost: cost}
}

// Hash returns a salted bcrypt hash of plain. Each call embeds a fresh
// random salt, so two hashes of the same input differ.
func (h Hasher) Hash(plain string) (string, error) {
	if len(plain) < minPasswordLen {
		return "", ErrWeakPassword
	}
	encoded, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(encoded), nil
}

// Verify reports whether plain matches encoded. A mismatch is (false, nil);
// an unusable stored hash is (false, ErrHashing).
func (h Hasher) Verify(plain, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrHashing, err)
	}
}
