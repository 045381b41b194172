package identity

import "errors"

// Sentinel kinds for identity errors.
var (
	ErrEmptySalt      = errors.New("identity salt must not be empty")
	ErrNoSessionToken = errors.New("no session token present")
	ErrNoSignals      = errors.New("no identity signals present")
)
