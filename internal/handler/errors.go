package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/lockout"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/security/password"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/service"
)

// ErrorKind is the closed set of failures the API reports.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidCredentials
	KindAccountLocked
	KindHashing
	KindTokenInvalid
	KindNotFound
)

// Fixed client messages. None of them reveal counters, hashes or whether an
// account exists.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgAccountLocked      = "Account temporarily locked. Try again later."
	msgNotAuthorized      = "Not authorized"
	msgInternal           = "Internal server error"
	msgNotFound           = "Not found"
	msgCredentialsMissing = "Email and password are required"
)

// classify maps an error returned by the service or store layer to its kind.
func classify(err error) ErrorKind {
	var locked *lockout.LockedError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.As(err, &locked):
		return KindAccountLocked
	case errors.Is(err, password.ErrHashing):
		return KindHashing
	case errors.Is(err, service.ErrTokenInvalid):
		return KindTokenInvalid
	case errors.Is(err, config.ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Status returns the HTTP status for k.
func (k ErrorKind) Status() int {
	switch k {
	case KindInvalidCredentials, KindTokenInvalid:
		return http.StatusUnauthorized
	case KindAccountLocked:
		return http.StatusLocked
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for k.
func (k ErrorKind) Message() string {
	switch k {
	case KindInvalidCredentials:
		return msgInvalidCredentials
	case KindAccountLocked:
		return msgAccountLocked
	case KindTokenInvalid:
		return msgNotAuthorized
	case KindNotFound:
		return msgNotFound
	default:
		return msgInternal
	}
}

// writeServiceError answers with the status and message of err's kind. A
// locked account also gets Retry-After; server-side kinds are logged with
// the underlying cause.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := classify(err)

	var locked *lockout.LockedError
	if kind == KindAccountLocked && errors.As(err, &locked) {
		secs := int(locked.RetryAfter(time.Now()) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	if kind.Status() >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}

	writeError(w, kind.Status(), kind.Message())
}
