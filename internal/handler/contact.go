package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/alert"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
)

// ContactNotifier forwards a stored submission to the site owner without
// blocking the request. *alert.Notifier satisfies it.
type ContactNotifier interface {
	NotifyContact(s alert.Submission)
}

// ContactHandler accepts contact form submissions and lists them for the
// admin.
type ContactHandler struct {
	store    *config.Store
	notifier ContactNotifier
	logger   *slog.Logger
}

// NewContactHandler creates a new ContactHandler. notifier may be nil.
func NewContactHandler(store *config.Store, notifier ContactNotifier, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{store: store, notifier: notifier, logger: logger}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateContact stores a submission and forwards it to the owner. Delivery
// failures are logged by the notifier and never change the response.
// POST /api/v1/contacts
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	c := model.Contact{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if c.Name == "" || c.Email == "" || c.Subject == "" || c.Message == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	if err := h.store.CreateContact(r.Context(), &c); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if h.notifier != nil {
		h.notifier.NotifyContact(alert.Submission{
			ID:      c.ID,
			Name:    c.Name,
			Email:   c.Email,
			Subject: c.Subject,
			Message: c.Message,
			Time:    c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListContacts returns every submission, newest first.
// GET /api/v1/admin/data/contacts
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.ListContacts(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse[model.Contact]{
		Resource: contacts,
		Meta:     model.ResponseMeta{Count: len(contacts)},
	})
}
