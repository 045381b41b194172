// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// SchemaHandler serves the roster so clients can render rating forms.
type SchemaHandler struct {
	deps Dependencies
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(deps Dependencies) *SchemaHandler {
	return &SchemaHandler{deps: deps}
}

type subjectDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type criterionDTO struct {
	Name      string `json:"name"`
	MaxPoints int    `json:"max_points"`
}

type schemaResponse struct {
	Subjects []subjectDTO   `json:"subjects"`
	Criteria []criterionDTO `json:"criteria"`
	MaxTotal int            `json:"max_total"`
}

// HandleGetSchema handles GET /schema requests.
func (h *SchemaHandler) HandleGetSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sch := h.deps.Schema()

	resp := schemaResponse{MaxTotal: sch.MaxTotal()}
	for _, s := range sch.Subjects() {
		resp.Subjects = append(resp.Subjects, subjectDTO{ID: s.ID, Name: s.Name})
	}
	for _, c := range sch.Criteria() {
		resp.Criteria = append(resp.Criteria, criterionDTO{Name: c.Name, MaxPoints: c.MaxPoints})
	}
	writeJSON(w, http.StatusOK, resp)
}
