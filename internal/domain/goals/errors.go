package goals

import "errors"

// Sentinel errors for goal configuration.
var (
	ErrUnknownKey      = errors.New("unknown goal key")
	ErrMalformed       = errors.New("malformed goal overrides")
	ErrInvalidOverride = errors.New("invalid goal override")
)
