// Package admin gates the destructive and exporting operations behind a
// shared secret.
package admin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/okian/podium/internal/adapters/repository"
)

// SessionInvalidator drops any derived per-session submission flags. After a
// reset, no session may keep claiming "submitted" against an empty store.
type SessionInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// Control exposes reset and export, authenticated against the SHA-256 digest
// of a shared secret. Only the digest is ever configured or held in memory;
// the raw secret is never logged or echoed.
type Control struct {
	digest   []byte
	store    repository.Store
	sessions SessionInvalidator
}

// Option applies a configuration option to the Control.
type Option func(*Control)

// WithSessionInvalidator wires the session registry to be flushed on reset.
func WithSessionInvalidator(inv SessionInvalidator) Option {
	return func(c *Control) {
		if inv != nil {
			c.sessions = inv
		}
	}
}

// New creates a Control from the hex-encoded SHA-256 digest of the admin
// secret.
func New(secretDigestHex string, store repository.Store, opts ...Option) (*Control, error) {
	digest, err := hex.DecodeString(secretDigestHex)
	if err != nil || len(digest) != sha256.Size {
		return nil, ErrBadDigest
	}

	c := &Control{
		digest: digest,
		store:  store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authenticate reports whether secret matches the configured digest. Both
// sides are compared as digests, in constant time, so neither the secret nor
// its length leaks through timing or logs.
func (c *Control) Authenticate(secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	return hmac.Equal(sum[:], c.digest)
}

// Reset wipes the store and invalidates derived session flags.
func (c *Control) Reset(ctx context.Context, secret string) error {
	if !c.Authenticate(secret) {
		return ErrBadSecret
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if c.sessions != nil {
		c.sessions.InvalidateAll(ctx)
	}
	return nil
}

// Export streams the store's tabular form to w.
func (c *Control) Export(ctx context.Context, secret string, w io.Writer) error {
	if !c.Authenticate(secret) {
		return ErrBadSecret
	}
	if err := c.store.WriteTo(ctx, w); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// DigestOf is a convenience for configuration tooling: the hex SHA-256
// digest of a raw secret.
func DigestOf(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
