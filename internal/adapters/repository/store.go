// Package repository defines the submission store interface and errors.
package repository

import (
	"context"
	"io"

	"github.com/okian/podium/internal/domain/model"
)

// Store is the durable append-only log of accepted ratings, keyed by rater
// identity. It is the only writer of the persisted log; external processes
// must never touch the file directly or the batch-atomicity guarantee is
// gone.
type Store interface {
	// HasSubmitted reports whether at least one rating for id is durably
	// persisted. Reads without the write lock: good enough for UI gating,
	// not the final arbiter. The authoritative check lives inside Append.
	HasSubmitted(ctx context.Context, id string) bool

	// Append atomically verifies the batch's rater has not submitted and,
	// only if so, durably writes every rating in the batch as one
	// indivisible operation. Returns ErrDuplicate when the identity is
	// already present, including identities that appeared concurrently
	// after a caller's own HasSubmitted check. A persistence failure
	// leaves the store in its prior state and surfaces ErrStorage.
	Append(ctx context.Context, batch model.Batch) error

	// All returns a consistent snapshot of the stored ratings. A reader
	// never observes a subset of one batch's rows.
	All(ctx context.Context) []model.Rating

	// Clear irreversibly wipes every stored rating.
	Clear(ctx context.Context) error

	// WriteTo streams the current snapshot in the persisted tabular form
	// (UTF-8, header row, one record per line).
	WriteTo(ctx context.Context, w io.Writer) error

	// Version increases on every successful Append or Clear. Derived
	// caches keyed on it are invalid once it moves.
	Version(ctx context.Context) uint64

	// Count returns the number of stored ratings (rows, not batches).
	Count(ctx context.Context) int

	// Raters returns the number of distinct rater identities stored.
	Raters(ctx context.Context) int64
}
