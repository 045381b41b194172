// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// StatusHandler reports session state so clients can gate their UI.
type StatusHandler struct {
	deps Dependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps Dependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

type statusResponse struct {
	SessionToken string `json:"session_token"`
	State        string `json:"state"`
	Submitted    bool   `json:"submitted"`
}

// HandleGetStatus handles GET /status requests. It issues a session token on
// first contact and reports whether this rater has already submitted. The
// answer is advisory; the store remains the final arbiter on submit.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_status"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	sig := requestSignals(r)
	sig.SessionToken = h.deps.EnsureSession(r.Context(), sig.SessionToken)
	setSessionCookie(w, sig.SessionToken)

	submitted, err := h.deps.HasSubmitted(r.Context(), sig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		SessionToken: sig.SessionToken,
		State:        string(h.deps.SessionState(r.Context(), sig.SessionToken)),
		Submitted:    submitted,
	})
}
