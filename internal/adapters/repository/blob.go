package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
)

// Keys of the blob layout.
const (
	KeyGoals    = "defend100_goals"
	KeyProgress = "defend100_progress"
	KeyXP       = "defend100_xp"
)

// Blob is a flat key-value backend.
type Blob interface {
	// Get returns the value stored at key; found is false when absent.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// BlobStore lays the ports out as three JSON values over a Blob: the
// override table, all progress keyed by date, and the cumulative XP.
type BlobStore struct {
	// mu serialises read-modify-write of the progress value.
	mu     sync.Mutex
	blob   Blob
	driver string
}

// NewBlobStore wraps blob. driver labels metrics.
func NewBlobStore(blob Blob, driver string) *BlobStore {
	return &BlobStore{blob: blob, driver: driver}
}

// LoadGoalOverrides implements GoalRepository.
func (s *BlobStore) LoadGoalOverrides(ctx context.Context) (goals.Overrides, bool, error) {
	defer observe(s.driver, "load_goals", time.Now())
	data, found, err := s.blob.Get(ctx, KeyGoals)
	if err != nil || !found {
		return nil, false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}
	o, err := goals.DecodeOverrides(data)
	if err != nil {
		return nil, true, err
	}
	return o, true, nil
}

// SaveGoalOverrides implements GoalRepository.
func (s *BlobStore) SaveGoalOverrides(ctx context.Context, o goals.Overrides) error {
	defer observe(s.driver, "save_goals", time.Now())
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode goals: %w", err)
	}
	return s.blob.Put(ctx, KeyGoals, data)
}

// LoadAllProgress implements ProgressRepository.
func (s *BlobStore) LoadAllProgress(ctx context.Context) (map[progress.DateKey]progress.Entry, error) {
	defer observe(s.driver, "load_progress", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readProgress(ctx)
}

// SaveProgressValue implements ProgressRepository. Writes are refused with
// ErrMalformedProgress while the stored value cannot be decoded.
func (s *BlobStore) SaveProgressValue(ctx context.Context, date progress.DateKey, key goals.Key, value float64) error {
	defer observe(s.driver, "save_progress", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readProgress(ctx)
	if err != nil {
		return err
	}
	e, ok := all[date]
	if !ok {
		e = progress.Entry{}
		all[date] = e
	}
	e[key] = value

	data, err := encodeProgress(all)
	if err != nil {
		return err
	}
	return s.blob.Put(ctx, KeyProgress, data)
}

// readProgress returns nil only on backend errors.
func (s *BlobStore) readProgress(ctx context.Context) (map[progress.DateKey]progress.Entry, error) {
	data, found, err := s.blob.Get(ctx, KeyProgress)
	if err != nil {
		return nil, err
	}
	if !found || len(bytes.TrimSpace(data)) == 0 {
		return map[progress.DateKey]progress.Entry{}, nil
	}
	return decodeProgress(data)
}

// decodeProgress parses {"YYYY-MM-DD": {"goal": number}}. Non-numeric
// values are skipped; a payload of any other shape yields an empty map.
func decodeProgress(data []byte) (map[progress.DateKey]progress.Entry, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[progress.DateKey]progress.Entry{}, fmt.Errorf("%w: %v", ErrMalformedProgress, err)
	}
	out := make(map[progress.DateKey]progress.Entry, len(raw))
	for date, values := range raw {
		e := progress.Entry{}
		for key, msg := range values {
			var v float64
			if err := json.Unmarshal(msg, &v); err != nil {
				continue
			}
			e[goals.Key(key)] = v
		}
		out[progress.DateKey(date)] = e
	}
	return out, nil
}

func encodeProgress(all map[progress.DateKey]progress.Entry) ([]byte, error) {
	raw := make(map[progress.DateKey]map[goals.Key]float64, len(all))
	for d, e := range all {
		vals := make(map[goals.Key]float64, len(e))
		for k, v := range e {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			vals[k] = v
		}
		raw[d] = vals
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return data, nil
}

// SaveCumulativeXP implements ExperienceRepository.
func (s *BlobStore) SaveCumulativeXP(ctx context.Context, total int) error {
	defer observe(s.driver, "save_xp", time.Now())
	return s.blob.Put(ctx, KeyXP, []byte(strconv.Itoa(total)))
}

// LoadCumulativeXP implements ExperienceRepository. An unreadable value is
// reported as absent.
func (s *BlobStore) LoadCumulativeXP(ctx context.Context) (int, bool, error) {
	data, found, err := s.blob.Get(ctx, KeyXP)
	if err != nil || !found {
		return 0, false, err
	}
	total, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil {
		return 0, false, nil
	}
	return total, true, nil
}

// Close closes the backend.
func (s *BlobStore) Close() error {
	return s.blob.Close()
}
