// Package dedupe tracks which rater identities already have a durable batch.
package dedupe

// Option applies a configuration option to the inMemoryIndex.
type Option func(*inMemoryIndex)

// WithSizeHint pre-sizes the identity set for an expected rater count.
func WithSizeHint(n int) Option {
	return func(x *inMemoryIndex) {
		if n > 0 {
			x.seen = make(map[string]struct{}, n)
		}
	}
}
