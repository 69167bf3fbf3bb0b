package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("write queue full")
	ErrClosed = errors.New("write queue closed")
)
