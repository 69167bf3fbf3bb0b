package seed

import "errors"

// Sentinel errors for seeding.
var (
	ErrInvalidConfig  = errors.New("invalid seed config")
	ErrUnknownProfile = errors.New("unknown seed profile")
	ErrRejected       = errors.New("sample rejected")
	ErrMismatch       = errors.New("recorded values differ from samples")
)
