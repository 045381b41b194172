// Package dedupe tracks which rater identities already have a durable batch.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Index records rater identities so "already submitted?" can be answered
// without touching storage. It mirrors the durable log: the store records an
// identity only after its batch is safely on disk, and forgets it when an
// append fails, so the index never runs ahead of what a crash would preserve.
//
// Reads through Seen are lock-free with respect to appends and are meant for
// UI gating only; the authoritative duplicate check happens inside the
// store's exclusive append region.
type Index interface {
	// Seen reports whether id has been recorded. Eventually consistent;
	// never use it as the final duplicate arbiter.
	Seen(ctx context.Context, id string) bool

	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes an id, allowing it to be recorded again. Used when a
	// batch write fails after the identity was tentatively recorded.
	Forget(ctx context.Context, id string)

	// Reset drops every recorded identity and bumps the version.
	Reset(ctx context.Context)

	// Version increases on every mutation. A cached aggregation keyed on
	// the version is invalid the moment the version moves.
	Version() uint64

	Size() int64
}

// inMemoryIndex implements Index with a mutex-guarded set.
type inMemoryIndex struct {
	mu      sync.RWMutex
	seen    map[string]struct{}
	version atomic.Uint64
}

// NewInMemoryIndex creates an empty identity index with configuration options.
func NewInMemoryIndex(opts ...Option) Index {
	idx := &inMemoryIndex{
		seen: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

func (x *inMemoryIndex) Seen(_ context.Context, id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.seen[id]
	return ok
}

func (x *inMemoryIndex) SeenAndRecord(_ context.Context, id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.seen[id]; ok {
		return true
	}
	x.seen[id] = struct{}{}
	x.version.Add(1)
	return false
}

func (x *inMemoryIndex) Forget(_ context.Context, id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.seen[id]; ok {
		delete(x.seen, id)
		x.version.Add(1)
	}
}

func (x *inMemoryIndex) Reset(_ context.Context) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.seen = make(map[string]struct{})
	x.version.Add(1)
}

func (x *inMemoryIndex) Version() uint64 {
	return x.version.Load()
}

func (x *inMemoryIndex) Size() int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return int64(len(x.seen))
}
