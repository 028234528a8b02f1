package handler

import (
	"net/http"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/openapi"
)

// OpenAPIHandler serves the OpenAPI document of this server.
type OpenAPIHandler struct {
	baseURL string
}

// NewOpenAPIHandler creates a new OpenAPIHandler. baseURL goes into the
// document's servers list and may be empty.
func NewOpenAPIHandler(baseURL string) *OpenAPIHandler {
	return &OpenAPIHandler{baseURL: baseURL}
}

// ServeSpec returns the document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openapi.Generate(h.baseURL))
}
