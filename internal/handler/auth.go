package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/server/middleware"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/service"
)

// AuthHandler serves the admin login and self-view endpoints.
type AuthHandler struct {
	store   *config.Store
	authSvc *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store *config.Store, authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, authSvc: authSvc, logger: logger}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// Login authenticates the admin and returns a bearer token.
// POST /api/v1/admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgCredentialsMissing)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsMissing)
		return
	}

	res, err := h.authSvc.Login(r.Context(), req.Email, req.Password, service.ClientInfo{
		Address:   clientAddress(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		TokenType: "bearer",
		ExpiresIn: int(time.Until(res.ExpiresAt).Round(time.Second) / time.Second),
	})
}

// meResponse is the admin self-view.
type meResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// Me returns the authenticated admin.
// GET /api/v1/admin/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, msgNotAuthorized)
		return
	}

	admin, err := h.store.GetAdminByID(r.Context(), p.AdminID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:          admin.ID,
		Email:       admin.Email,
		LastLoginAt: admin.LastLoginAt,
	})
}

// clientAddress strips the port that net/http leaves on RemoteAddr. The
// RealIP middleware has already replaced it with the forwarded address
// where one was present.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
