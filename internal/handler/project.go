package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
)

// ProjectHandler serves the public showcase and the admin project CRUD.
type ProjectHandler struct {
	store  *config.Store
	logger *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(store *config.Store, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{store: store, logger: logger}
}

// projectRequest is the create/update payload. Absent fields are left
// unchanged on update.
type projectRequest struct {
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	Category      *string         `json:"category"`
	ImageURL      *string         `json:"image"`
	VideoURL      *string         `json:"video"`
	Technologies  json.RawMessage `json:"technologies"`
	GithubURL     *string         `json:"githubUrl"`
	DemoURL       *string         `json:"demoUrl"`
	DateCompleted *string         `json:"dateCompleted"`
}

// apply copies the present fields of req onto p.
func (req *projectRequest) apply(p *model.Project) error {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&p.Title, req.Title)
	setString(&p.Description, req.Description)
	setString(&p.Category, req.Category)
	setString(&p.ImageURL, req.ImageURL)
	setString(&p.VideoURL, req.VideoURL)
	setString(&p.GithubURL, req.GithubURL)
	setString(&p.DemoURL, req.DemoURL)

	if req.Technologies != nil {
		techs, err := splitList(req.Technologies)
		if err != nil {
			return fmt.Errorf("technologies %w", err)
		}
		p.Technologies = techs
	}

	if req.DateCompleted != nil {
		d, err := parseDate(*req.DateCompleted)
		if err != nil {
			return err
		}
		p.DateCompleted = d
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("dateCompleted must be YYYY-MM-DD or RFC 3339")
}

func validateProject(p *model.Project) error {
	if p.Title == "" || p.Description == "" {
		return errors.New("Title and description are required")
	}
	return nil
}

// ListProjects returns every project, newest first.
// GET /api/v1/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse[model.Project]{
		Resource: projects,
		Meta:     model.ResponseMeta{Count: len(projects)},
	})
}

// GetProject returns one project.
// GET /api/v1/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProject adds a project.
// POST /api/v1/admin/data/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var p model.Project
	if err := req.apply(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateProject(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateProject(r.Context(), &p); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProject applies a partial update.
// PUT /api/v1/admin/data/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req projectRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}

	if err := req.apply(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateProject(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Category == "" {
		p.Category = model.DefaultCategory
	}

	if err := h.store.UpdateProject(r.Context(), p); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject removes a project.
// DELETE /api/v1/admin/data/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Project deleted"})
}
