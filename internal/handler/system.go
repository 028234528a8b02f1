package handler

import (
	"net/http"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/openapi"
)

// SystemHandler serves the API index.
type SystemHandler struct {
	version string
}

// NewSystemHandler creates a new SystemHandler. version is the build
// version of the binary.
func NewSystemHandler(version string) *SystemHandler {
	return &SystemHandler{version: version}
}

type apiIndex struct {
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	APIVersion string            `json:"api_version"`
	Links      map[string]string `json:"links"`
}

// Index lists the entry points of the API.
// GET /api/v1
func (h *SystemHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiIndex{
		Name:       "portfolio",
		Version:    h.version,
		APIVersion: openapi.Version,
		Links: map[string]string{
			"projects": "/api/v1/projects",
			"contacts": "/api/v1/contacts",
			"login":    "/api/v1/admin/login",
			"openapi":  "/openapi.json",
		},
	})
}
