// Package repository defines the persistence ports of the integrity engine
// and their storage adapters.
package repository

import (
	"context"
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/pkg/metrics"
)

// GoalRepository persists the user's goal overrides.
type GoalRepository interface {
	// LoadGoalOverrides returns the stored overrides. found is false when
	// nothing was ever saved. A payload that cannot be decoded yields an
	// error wrapping goals.ErrMalformed.
	LoadGoalOverrides(ctx context.Context) (overrides goals.Overrides, found bool, err error)
	SaveGoalOverrides(ctx context.Context, overrides goals.Overrides) error
}

// ProgressRepository persists recorded values.
type ProgressRepository interface {
	// LoadAllProgress returns every stored entry. On malformed data it
	// returns whatever could be read (possibly empty) with an error wrapping
	// ErrMalformedProgress.
	LoadAllProgress(ctx context.Context) (map[progress.DateKey]progress.Entry, error)
	SaveProgressValue(ctx context.Context, date progress.DateKey, key goals.Key, value float64) error
}

// ExperienceRepository persists the cumulative XP and its derived level.
type ExperienceRepository interface {
	SaveCumulativeXP(ctx context.Context, total int) error
	LoadCumulativeXP(ctx context.Context) (total int, found bool, err error)
}

// Store bundles every port behind one backend.
type Store interface {
	GoalRepository
	ProgressRepository
	ExperienceRepository
	Close() error
}

// observe records the latency of one storage call.
func observe(driver, op string, start time.Time) {
	metrics.RecordRepositoryOperation(driver, op, float64(time.Since(start).Microseconds())/1000)
}
