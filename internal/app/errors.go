package service

import "errors"

// Sentinel kinds for service configuration errors.
var (
	ErrNoRoster       = errors.New("no roster configured")
	ErrNoIdentitySalt = errors.New("no identity salt configured")
)
