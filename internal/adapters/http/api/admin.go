// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/okian/podium/internal/admin"
	"github.com/okian/podium/pkg/metrics"
)

// adminSecretHeader carries the operator's shared secret. The value is only
// ever compared against a stored digest; it is never logged or echoed.
const adminSecretHeader = "X-Admin-Secret"

// AdminControl is the slice of admin behavior the handlers need.
type AdminControl interface {
	Reset(ctx context.Context, secret string) error
	Export(ctx context.Context, secret string, w io.Writer) error
}

// AdminHandler handles operator reset and export requests. A nil control
// means no admin secret was configured and every admin route 404s.
type AdminHandler struct {
	ctl AdminControl
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(ctl AdminControl) *AdminHandler {
	return &AdminHandler{ctl: ctl}
}

type resetResponse struct {
	Status string `json:"status"`
}

// HandleReset handles POST /admin/reset requests.
func (h *AdminHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_reset"
	if h.ctl == nil || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	err := h.ctl.Reset(r.Context(), r.Header.Get(adminSecretHeader))
	switch {
	case err == nil:
		metrics.RecordAdminReset()
		writeJSON(w, http.StatusOK, resetResponse{Status: "reset"})
	case errors.Is(err, admin.ErrBadSecret):
		metrics.RecordAdminAuthFailure()
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// HandleExport handles GET /admin/export requests, streaming the raw
// persisted log as CSV.
func (h *AdminHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_export"
	if h.ctl == nil || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="scores.csv"`)
	err := h.ctl.Export(r.Context(), r.Header.Get(adminSecretHeader), w)
	switch {
	case err == nil:
		metrics.RecordAdminExport()
	case errors.Is(err, admin.ErrBadSecret):
		metrics.RecordAdminAuthFailure()
		w.Header().Del("Content-Disposition")
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
	default:
		// Headers may already be on the wire; the truncated body is the
		// only signal left to give.
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
