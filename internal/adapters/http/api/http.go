// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/identity"
	"github.com/okian/podium/internal/domain/schema"
	"github.com/okian/podium/internal/domain/types"
)

// sessionCookie carries the rater's session token between requests.
const sessionCookie = "podium_session"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Schema exposes the immutable roster for rendering rating forms.
	Schema() *schema.Schema

	// EnsureSession returns the caller's session token, issuing one if needed.
	EnsureSession(ctx context.Context, token string) string

	// SessionState reports the submission state for a session token.
	SessionState(ctx context.Context, token string) service.SubmissionState

	// HasSubmitted reports whether the signals' identity already submitted.
	HasSubmitted(ctx context.Context, sig identity.Signals) (bool, error)

	// Submit validates and atomically appends one full submission.
	Submit(ctx context.Context, sig identity.Signals, submission map[int]map[string]int) error

	// Rankings returns the current aggregate rows, best mean first.
	Rankings(ctx context.Context) []types.AggregateRow
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	schemaHandler   *SchemaHandler
	statusHandler   *StatusHandler
	ratingsHandler  *RatingsHandler
	rankingsHandler *RankingsHandler
	adminHandler    *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, ctl AdminControl) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		schemaHandler:   NewSchemaHandler(deps),
		statusHandler:   NewStatusHandler(deps),
		ratingsHandler:  NewRatingsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		adminHandler:    NewAdminHandler(ctl),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/schema", MetricsMiddleware(s.schemaHandler.HandleGetSchema, "schema"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleGetStatus, "status"))
	mux.HandleFunc("/ratings", MetricsMiddleware(s.ratingsHandler.HandlePostRatings, "ratings"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("/admin/reset", MetricsMiddleware(s.adminHandler.HandleReset, "admin_reset"))
	mux.HandleFunc("/admin/export", MetricsMiddleware(s.adminHandler.HandleExport, "admin_export"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// requestSignals extracts the identity signals from an incoming request.
// The session token is taken from the cookie, falling back to the
// X-Session-Token header for clients without cookie jars.
func requestSignals(r *http.Request) identity.Signals {
	token := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		token = r.Header.Get("X-Session-Token")
	}
	return identity.Signals{
		Origin:       clientOrigin(r),
		Agent:        r.UserAgent(),
		SessionToken: token,
	}
}

// clientOrigin returns the caller's network origin, honoring the first
// X-Forwarded-For hop when a proxy sits in front.
func clientOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// setSessionCookie pins the issued token on the response.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
