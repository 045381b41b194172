package repository

import "errors"

// Sentinel kinds for submission store errors.
var (
	// ErrDuplicate means the batch's rater identity already has a durable
	// batch; the submission is terminal, not retryable.
	ErrDuplicate = errors.New("identity already submitted")

	// ErrStorage wraps persistence failures. No partial state was
	// committed, so the submission is safely retryable.
	ErrStorage = errors.New("storage failure")

	// ErrBatchShape means the batch violates the one-rating-per-subject
	// invariant or carries a total that does not match its scores.
	ErrBatchShape = errors.New("malformed batch")

	// ErrCorruptLog means the persisted file does not parse against the
	// schema's column layout.
	ErrCorruptLog = errors.New("corrupt ratings log")
)
