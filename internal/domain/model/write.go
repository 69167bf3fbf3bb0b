// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
)

// WriteKind names the persistence port a Write targets.
type WriteKind string

// Write kinds.
const (
	WriteProgress WriteKind = "progress"
	WriteGoals    WriteKind = "goals"
	WriteXP       WriteKind = "xp"
)

// Write is one pending persistence operation. Only the fields of its Kind
// are set.
type Write struct {
	ID   string
	Kind WriteKind

	// progress
	Date  progress.DateKey
	Key   goals.Key
	Value float64

	// goals
	Goals goals.Overrides

	// xp
	XP int

	EnqueuedAt time.Time
}

// WriteResult reports how a Write ended.
type WriteResult struct {
	Write   Write
	Err     error
	Latency time.Duration
}

// OK reports whether the write was persisted.
func (r WriteResult) OK() bool { return r.Err == nil }
