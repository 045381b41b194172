package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/podium/internal/domain/identity"
)

// SubmissionState is the explicit per-session state machine. Transitions are
// driven by store results, never by forced page reloads.
type SubmissionState string

// Session states. Failed is retryable; Submitted is terminal.
const (
	StateNotSubmitted SubmissionState = "not_submitted"
	StateSubmitting   SubmissionState = "submitting"
	StateSubmitted    SubmissionState = "submitted"
	StateFailed       SubmissionState = "failed"
)

type session struct {
	state SubmissionState
	epoch uint64
}

// SessionRegistry issues session tokens and tracks each session's submission
// state. A token, once issued, is never regenerated for the session's
// lifetime; regenerating would silently defeat deduplication.
//
// Invalidation is by epoch: an admin reset bumps the registry epoch, and any
// session stamped with an older epoch reads as NotSubmitted again.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	epoch    atomic.Uint64
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*session),
	}
}

// Ensure returns token unchanged when the registry knows it, and otherwise
// issues and registers a fresh one.
func (r *SessionRegistry) Ensure(_ context.Context, token string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != "" {
		if _, ok := r.sessions[token]; ok {
			return token
		}
		// Unknown token, e.g. after a process restart: adopt it rather
		// than issue a replacement, so the rater keeps one identity.
		r.sessions[token] = &session{state: StateNotSubmitted, epoch: r.epoch.Load()}
		return token
	}

	token = identity.NewSessionToken()
	r.sessions[token] = &session{state: StateNotSubmitted, epoch: r.epoch.Load()}
	return token
}

// State reports the session's current submission state.
func (r *SessionRegistry) State(_ context.Context, token string) SubmissionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok || s.epoch < r.epoch.Load() {
		return StateNotSubmitted
	}
	return s.state
}

// transition moves the session to next, creating or reviving it as needed.
func (r *SessionRegistry) transition(_ context.Context, token string, next SubmissionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	epoch := r.epoch.Load()
	s, ok := r.sessions[token]
	if !ok || s.epoch < epoch {
		s = &session{epoch: epoch}
		r.sessions[token] = s
	}
	s.state = next
}

// InvalidateAll forgets every derived submission flag. Tokens stay valid;
// only the states reset.
func (r *SessionRegistry) InvalidateAll(_ context.Context) {
	r.epoch.Add(1)
}

// Size returns the number of tracked sessions.
func (r *SessionRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
