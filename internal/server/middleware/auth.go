package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated admin.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Authenticator validates a bearer token. *service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Principal, error)
}

// RequireAdmin rejects requests without a valid "Authorization: Bearer"
// token. Every rejection gets the same 401 body so callers cannot tell a
// missing header from an expired or forged token. The account's lock state
// is not consulted.
func RequireAdmin(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAuthError(w)
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w)
				return
			}

			annotateAdmin(r.Context(), p.AdminID)
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated admin from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="portfolio"`)
	w.WriteHeader(http.StatusUnauthorized)
	// Written by hand to avoid an import cycle with the handler package.
	w.Write([]byte(`{"error":"Not authorized"}`))
}
