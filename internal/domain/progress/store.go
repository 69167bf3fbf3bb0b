package progress

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/okian/defend100/internal/domain/goals"
)

// Entry holds the values recorded on one date. A missing key means the
// metric was not recorded, which is different from a recorded zero.
type Entry map[goals.Key]float64

// Clone returns an independent copy of e.
func (e Entry) Clone() Entry {
	out := make(Entry, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Value returns the recorded value for k when it is present and finite.
func (e Entry) Value(k goals.Key) (float64, bool) {
	v, ok := e[k]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Store is the in-memory progress store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[DateKey]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[DateKey]Entry)}
}

// Get returns a copy of the entry for date; empty when nothing was recorded.
func (s *Store) Get(date DateKey) Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[date].Clone()
}

// Set records value for key on date and returns the updated entry. The last
// write for a (date, key) pair wins.
func (s *Store) Set(date DateKey, key goals.Key, value float64) (Entry, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, string(date))
	}
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %q", goals.ErrUnknownKey, string(key))
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[date]
	if !ok {
		e = make(Entry, goals.Count)
		s.entries[date] = e
	}
	e[key] = value
	return e.Clone(), nil
}

// All returns a copy of every recorded entry keyed by date.
func (s *Store) All() map[DateKey]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[DateKey]Entry, len(s.entries))
	for d, e := range s.entries {
		out[d] = e.Clone()
	}
	return out
}

// Dates returns the recorded dates in ascending order.
func (s *Store) Dates() []DateKey {
	s.mu.RLock()
	dates := make([]DateKey, 0, len(s.entries))
	for d := range s.entries {
		dates = append(dates, d)
	}
	s.mu.RUnlock()
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

// Len returns the number of dates with an entry.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Replace swaps the whole content for all, dropping dates and keys that are
// not valid and values that are not finite. It returns how many values were
// dropped.
func (s *Store) Replace(all map[DateKey]Entry) int {
	clean := make(map[DateKey]Entry, len(all))
	dropped := 0
	for d, e := range all {
		if !d.Valid() {
			dropped += len(e)
			continue
		}
		ce := make(Entry, len(e))
		for k, v := range e {
			if !k.Valid() || math.IsNaN(v) || math.IsInf(v, 0) {
				dropped++
				continue
			}
			ce[k] = v
		}
		clean[d] = ce
	}

	s.mu.Lock()
	s.entries = clean
	s.mu.Unlock()
	return dropped
}
