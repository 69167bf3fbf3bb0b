package progress

import "errors"

// Sentinel errors for progress recording.
var (
	ErrInvalidDate  = errors.New("invalid date key")
	ErrInvalidValue = errors.New("value must be a finite number")
)
