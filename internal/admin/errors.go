package admin

import "errors"

// Sentinel kinds for admin errors.
var (
	ErrBadSecret = errors.New("invalid admin secret")
	ErrBadDigest = errors.New("admin secret digest must be hex-encoded SHA-256")
)
