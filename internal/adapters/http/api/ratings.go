// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/identity"
	"github.com/okian/podium/internal/domain/schema"
)

// RatingsHandler handles submission requests.
type RatingsHandler struct {
	deps Dependencies
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps Dependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

// ratingRequest mirrors the JSON schema for POST /ratings. Subject IDs are
// JSON object keys and therefore arrive as strings.
type ratingRequest struct {
	SessionToken string                    `json:"session_token,omitempty"`
	Ratings      map[string]map[string]int `json:"ratings"`
}

type submitResponse struct {
	Status       string `json:"status"`
	Duplicate    bool   `json:"duplicate"`
	SessionToken string `json:"session_token"`
}

type validationResponse struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Violations schema.Violations `json:"violations"`
}

// HandlePostRatings handles POST /ratings requests.
func (h *RatingsHandler) HandlePostRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ratings"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Ratings) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	submission := make(map[int]map[string]int, len(req.Ratings))
	for key, scores := range req.Ratings {
		id, err := strconv.Atoi(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		submission[id] = scores
	}

	sig := requestSignals(r)
	if req.SessionToken != "" {
		sig.SessionToken = req.SessionToken
	}
	sig.SessionToken = h.deps.EnsureSession(r.Context(), sig.SessionToken)
	setSessionCookie(w, sig.SessionToken)

	err := h.deps.Submit(r.Context(), sig, submission)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, submitResponse{
			Status:       "accepted",
			SessionToken: sig.SessionToken,
		})
	case errors.Is(err, schema.ErrValidation):
		var viols schema.Violations
		errors.As(err, &viols)
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Code:       "validation_failed",
			Message:    "submission rejected",
			Violations: viols,
		})
	case errors.Is(err, repository.ErrDuplicate):
		writeJSON(w, http.StatusConflict, submitResponse{
			Status:       "duplicate",
			Duplicate:    true,
			SessionToken: sig.SessionToken,
		})
	case errors.Is(err, identity.ErrNoSessionToken), errors.Is(err, identity.ErrNoSignals):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
