// Package identity derives a stable pseudo-identity for the current rater
// from weak, spoofable signals. The identity is only a deduplication key,
// never a security credential.
//
// Three policies exist because none of them is perfect: a session token is
// stable within one browsing session but lost on restart; an origin+agent
// fingerprint survives restarts but can be altered by changing the network
// path. The hybrid policy prefers the session token and falls back to the
// fingerprint only when no token exists yet. Whatever the policy, the inputs
// are hashed once per session and never recomputed from mutable headers on
// later calls; recomputing silently defeats deduplication.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Policy selects which signals feed the identity digest.
type Policy string

// Supported identity policies.
const (
	// PolicySession keys purely on the server-issued session token.
	PolicySession Policy = "session"
	// PolicyFingerprint keys on the origin+agent tuple across sessions.
	PolicyFingerprint Policy = "fingerprint"
	// PolicyHybrid prefers the session token, falling back to the
	// fingerprint when no token exists yet.
	PolicyHybrid Policy = "hybrid"
)

// Valid reports whether p names a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicySession, PolicyFingerprint, PolicyHybrid:
		return true
	}
	return false
}

// Signals carries the request-scoped inputs available to the resolver.
type Signals struct {
	Origin       string // network origin, e.g. the client address
	Agent        string // client-reported agent string
	SessionToken string // server-issued random token; empty when none exists yet
}

// Resolver derives a RaterIdentity from request signals. Implementations must
// be pure functions of their inputs so repeated calls within a session yield
// the same identity.
type Resolver interface {
	// Resolve returns the fixed-length opaque identity for sig.
	Resolve(ctx context.Context, sig Signals) (string, error)

	// Fingerprint returns the origin+agent digest regardless of policy.
	// It populates the optional device_id column of the persisted log.
	Fingerprint(ctx context.Context, sig Signals) string
}

// HMACResolver implements Resolver with salted HMAC-SHA256 digests.
type HMACResolver struct {
	policy Policy
	salt   []byte
}

// Option applies a configuration option to the HMACResolver.
type Option func(*HMACResolver)

// WithPolicy selects the identity policy. Invalid values are ignored and the
// default (hybrid) kept.
func WithPolicy(p Policy) Option {
	return func(r *HMACResolver) {
		if p.Valid() {
			r.policy = p
		}
	}
}

// New creates a resolver with the given salt. The salt prevents rainbow-table
// style reversal of origin digests and must not be empty.
func New(salt string, opts ...Option) (*HMACResolver, error) {
	if salt == "" {
		return nil, ErrEmptySalt
	}

	r := &HMACResolver{
		policy: PolicyHybrid,
		salt:   []byte(salt),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Policy returns the configured policy.
func (r *HMACResolver) Policy() Policy { return r.policy }

// Resolve derives the rater identity per the configured policy. The output is
// a fixed-length hex digest; it must never be shown to any rater.
func (r *HMACResolver) Resolve(_ context.Context, sig Signals) (string, error) {
	switch r.policy {
	case PolicySession:
		if sig.SessionToken == "" {
			return "", ErrNoSessionToken
		}
		return r.digest("token", sig.SessionToken), nil
	case PolicyFingerprint:
		if sig.Origin == "" && sig.Agent == "" {
			return "", ErrNoSignals
		}
		return r.digest("fp", sig.Origin, sig.Agent), nil
	default: // PolicyHybrid
		if sig.SessionToken != "" {
			return r.digest("token", sig.SessionToken), nil
		}
		if sig.Origin == "" && sig.Agent == "" {
			return "", ErrNoSignals
		}
		return r.digest("fp", sig.Origin, sig.Agent), nil
	}
}

// Fingerprint digests the origin+agent tuple, or returns "" when neither
// signal is present.
func (r *HMACResolver) Fingerprint(_ context.Context, sig Signals) string {
	if sig.Origin == "" && sig.Agent == "" {
		return ""
	}
	return r.digest("fp", sig.Origin, sig.Agent)
}

// digest computes a salted HMAC-SHA256 over the labeled parts. The label
// keeps token- and fingerprint-derived identities in disjoint namespaces.
func (r *HMACResolver) digest(label string, parts ...string) string {
	h := hmac.New(sha256.New, r.salt)
	h.Write([]byte(label))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewSessionToken issues a random session token. Once issued for a session it
// must never be regenerated for that session's lifetime.
func NewSessionToken() string {
	return uuid.NewString()
}
