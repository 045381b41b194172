// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/podium/internal/domain/types"
)

// RankingsHandler handles aggregate ranking requests.
type RankingsHandler struct {
	deps Dependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps Dependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

type rankingsResponse struct {
	Rankings []types.AggregateRow `json:"rankings"`
}

// HandleGetRankings handles GET /rankings requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rows := h.deps.Rankings(r.Context())
	if rows == nil {
		rows = []types.AggregateRow{}
	}
	writeJSON(w, http.StatusOK, rankingsResponse{Rankings: rows})
}
