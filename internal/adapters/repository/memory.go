package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
)

const driverMemory = "memory"

// MemoryStore keeps everything in process memory. It backs the memory
// driver and tests.
type MemoryStore struct {
	mu        sync.Mutex
	overrides goals.Overrides
	hasGoals  bool
	entries   map[progress.DateKey]progress.Entry
	xp        int
	hasXP     bool
	writeErr  error
	closed    bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithWriteError makes every save fail with err.
func WithWriteError(err error) MemoryOption {
	return func(m *MemoryStore) { m.writeErr = err }
}

// WithSeedProgress preloads entries as if they had been persisted earlier.
func WithSeedProgress(all map[progress.DateKey]progress.Entry) MemoryOption {
	return func(m *MemoryStore) {
		for d, e := range all {
			m.entries[d] = e.Clone()
		}
	}
}

// WithSeedOverrides preloads goal overrides.
func WithSeedOverrides(o goals.Overrides) MemoryOption {
	return func(m *MemoryStore) {
		m.overrides = cloneOverrides(o)
		m.hasGoals = true
	}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{entries: make(map[progress.DateKey]progress.Entry)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailWrites switches write failure injection on (err != nil) or off.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *MemoryStore) writable() error {
	if m.closed {
		return ErrClosed
	}
	return m.writeErr
}

// LoadGoalOverrides implements GoalRepository.
func (m *MemoryStore) LoadGoalOverrides(_ context.Context) (goals.Overrides, bool, error) {
	defer observe(driverMemory, "load_goals", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasGoals {
		return nil, false, nil
	}
	return cloneOverrides(m.overrides), true, nil
}

// SaveGoalOverrides implements GoalRepository.
func (m *MemoryStore) SaveGoalOverrides(_ context.Context, o goals.Overrides) error {
	defer observe(driverMemory, "save_goals", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	m.overrides = cloneOverrides(o)
	m.hasGoals = true
	return nil
}

// LoadAllProgress implements ProgressRepository.
func (m *MemoryStore) LoadAllProgress(_ context.Context) (map[progress.DateKey]progress.Entry, error) {
	defer observe(driverMemory, "load_progress", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[progress.DateKey]progress.Entry, len(m.entries))
	for d, e := range m.entries {
		out[d] = e.Clone()
	}
	return out, nil
}

// SaveProgressValue implements ProgressRepository.
func (m *MemoryStore) SaveProgressValue(_ context.Context, date progress.DateKey, key goals.Key, value float64) error {
	defer observe(driverMemory, "save_progress", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	e, ok := m.entries[date]
	if !ok {
		e = progress.Entry{}
		m.entries[date] = e
	}
	e[key] = value
	return nil
}

// SaveCumulativeXP implements ExperienceRepository.
func (m *MemoryStore) SaveCumulativeXP(_ context.Context, total int) error {
	defer observe(driverMemory, "save_xp", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	m.xp, m.hasXP = total, true
	return nil
}

// LoadCumulativeXP implements ExperienceRepository.
func (m *MemoryStore) LoadCumulativeXP(_ context.Context) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.xp, m.hasXP, nil
}

// Close marks the store closed; later writes fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneOverrides(o goals.Overrides) goals.Overrides {
	out := make(goals.Overrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
