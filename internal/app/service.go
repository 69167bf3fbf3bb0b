// Package service wires the goal table, progress store, scoring and leveling
// engines to persistence, and exposes the queries the HTTP API and CLI use.
//
// Writes are optimistic: in-memory state changes first and the matching
// persistence write is queued for the writer pool. A failed write is logged
// and counted; it is neither retried nor rolled back.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	writequeue "github.com/okian/defend100/internal/adapters/mq/queue"
	writerpool "github.com/okian/defend100/internal/adapters/mq/worker"
	"github.com/okian/defend100/internal/adapters/repository"
	"github.com/okian/defend100/internal/domain/dedupe"
	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/leveling"
	"github.com/okian/defend100/internal/domain/model"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/domain/scoring"
	"github.com/okian/defend100/internal/domain/types"
	"github.com/okian/defend100/pkg/logger"
	"github.com/okian/defend100/pkg/metrics"
)

// Service owns the in-memory session and its write-behind persistence.
type Service struct {
	mu sync.RWMutex

	// Core components
	table      goals.Table
	progress   *progress.Store
	store      repository.Store
	deduper    dedupe.Deduper
	writeQueue writequeue.Queue
	writers    *writerpool.Pool

	// writeMu orders mutations so queued writes match in-memory order.
	writeMu sync.Mutex

	// Configuration
	writerCount int
	queueSize   int
	dedupeSize  int
	clock       progress.Clock
	loc         *time.Location
	sink        writerpool.Sink

	// State
	started     bool
	storedXP    atomic.Int64
	hasStoredXP atomic.Bool
	persisted   atomic.Int64
	failed      atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Without it an in-memory store is
// used.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithWriterCount sets the number of persistence writers.
func WithWriterCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.writerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the write queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many client write IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock sets the time source used for "today".
func WithClock(clock progress.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the zone whose calendar decides "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithResultSink receives the outcome of every persistence write.
func WithResultSink(sink writerpool.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		table:       goals.Defaults(),
		progress:    progress.NewStore(),
		writerCount: 1,
		queueSize:   1024,
		dedupeSize:  10_000,
		clock:       progress.SystemClock,
		loc:         time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the persisted session and starts the writers. Malformed stored
// goals fall back to the defaults and malformed progress to an empty history;
// backend failures abort the start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.GetOrNop().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.logger.Info(ctx, "starting integrity service...")

	table := goals.Defaults()
	var all map[progress.DateKey]progress.Entry
	var xp int
	var xpFound bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.loadGoals(gctx)
		table = t
		return err
	})
	g.Go(func() error {
		a, err := s.loadProgress(gctx)
		all = a
		return err
	})
	g.Go(func() error {
		var err error
		xp, xpFound, err = s.store.LoadCumulativeXP(gctx)
		if err != nil {
			return fmt.Errorf("load xp: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "failed to load session", logger.Error(err))
		return fmt.Errorf("start service: %w", err)
	}

	s.table = table
	if dropped := s.progress.Replace(all); dropped > 0 {
		s.logger.Warn(ctx, "dropped invalid stored progress values", logger.Int("count", dropped))
	}
	s.storedXP.Store(int64(xp))
	s.hasStoredXP.Store(xpFound)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.writeQueue = writequeue.NewInMemoryQueue(writequeue.WithCapacity(s.queueSize))
	s.writers = writerpool.NewPool(s.writerCount, s.writeQueue, s.store,
		writerpool.WithLogger(s.logger),
		writerpool.WithSink(s.onWriteResult),
	)
	// Writers outlive the caller's context; Stop drains them.
	s.writers.Start(context.WithoutCancel(ctx))

	s.started = true
	s.publishProgressionOf(table)
	s.logger.Info(ctx, "integrity service started",
		logger.Int("writers", s.writerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("trackedDays", s.progress.Len()),
	)
	return nil
}

func (s *Service) loadGoals(ctx context.Context) (goals.Table, error) {
	overrides, found, err := s.store.LoadGoalOverrides(ctx)
	switch {
	case errors.Is(err, goals.ErrMalformed):
		metrics.RecordConfigFallback("goals")
		s.logger.Warn(ctx, "stored goals are malformed, using defaults", logger.Error(err))
		return goals.Defaults(), nil
	case err != nil:
		return goals.Defaults(), fmt.Errorf("load goals: %w", err)
	case !found:
		return goals.Defaults(), nil
	}
	table, violations := goals.Merge(goals.Defaults(), overrides)
	for _, v := range violations {
		s.logger.Warn(ctx, "ignored invalid stored goal field", logger.String("field", v.String()))
	}
	return table, nil
}

func (s *Service) loadProgress(ctx context.Context) (map[progress.DateKey]progress.Entry, error) {
	all, err := s.store.LoadAllProgress(ctx)
	switch {
	case errors.Is(err, repository.ErrMalformedProgress):
		metrics.RecordConfigFallback("progress")
		s.logger.Warn(ctx, "stored progress is malformed, starting empty", logger.Error(err))
		return map[progress.DateKey]progress.Entry{}, nil
	case err != nil:
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return all, nil
}

// Stop drains pending writes and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping integrity service...")

	var errs []error
	if err := s.writers.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "integrity service stopped",
		logger.Int("persisted", int(s.persisted.Load())),
		logger.Int("failed", int(s.failed.Load())),
	)
	return errors.Join(errs...)
}

// onWriteResult runs on writer goroutines and must not take s.mu.
func (s *Service) onWriteResult(r model.WriteResult) {
	if r.OK() {
		s.persisted.Add(1)
		if r.Write.Kind == model.WriteXP {
			s.storedXP.Store(int64(r.Write.XP))
			s.hasStoredXP.Store(true)
		}
	} else {
		s.failed.Add(1)
	}
	if s.sink != nil {
		s.sink(r)
	}
}

// Today returns the current date key in the configured zone.
func (s *Service) Today() progress.DateKey {
	return progress.Today(s.clock, s.loc)
}

// resolveDate maps "" and "today" to Today and validates the rest.
func (s *Service) resolveDate(raw string) (progress.DateKey, error) {
	if raw == "" || raw == "today" {
		return s.Today(), nil
	}
	return progress.ParseDateKey(raw)
}

// ResolveDate exposes date parsing with the "today" alias to adapters.
func (s *Service) ResolveDate(raw string) (progress.DateKey, error) {
	return s.resolveDate(raw)
}

// Goals returns the effective goal table.
func (s *Service) Goals() goals.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// ActiveGoals returns the active goals in canonical order.
func (s *Service) ActiveGoals() []goals.Config {
	return s.Goals().Active()
}

// SaveGoals replaces the table with overrides merged onto the defaults and
// queues it for persistence. Invalid fields are dropped and returned.
func (s *Service) SaveGoals(ctx context.Context, overrides goals.Overrides) (goals.Table, []goals.Violation, error) {
	if err := s.ensureStarted(); err != nil {
		return goals.Table{}, nil, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	table, violations := goals.Merge(goals.Defaults(), overrides)
	s.setTable(table)
	s.enqueueGoals(ctx, table)
	s.enqueueXP(ctx)
	return table, violations, nil
}

// UpdateGoal applies a single-goal override. Invalid values are rejected.
func (s *Service) UpdateGoal(ctx context.Context, key goals.Key, o goals.Override) (goals.Config, error) {
	if err := s.ensureStarted(); err != nil {
		return goals.Config{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	table, err := s.Goals().With(key, o)
	if err != nil {
		return goals.Config{}, err
	}
	s.setTable(table)
	s.enqueueGoals(ctx, table)
	s.enqueueXP(ctx)
	cfg, _ := table.Get(key)
	return cfg, nil
}

func (s *Service) setTable(t goals.Table) {
	s.mu.Lock()
	s.table = t
	s.mu.Unlock()
}

// SetRequest records one metric value.
type SetRequest struct {
	// WriteID makes the request idempotent when set.
	WriteID string
	// Date defaults to today; "today" is accepted too.
	Date  string
	Key   goals.Key
	Value float64
}

// SetValue records a value, rescoring the day and queueing persistence.
func (s *Service) SetValue(ctx context.Context, req SetRequest) (types.SetResult, error) {
	if err := s.ensureStarted(); err != nil {
		return types.SetResult{}, err
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return types.SetResult{}, err
	}
	if !req.Key.Valid() {
		return types.SetResult{}, fmt.Errorf("%w: %q", goals.ErrUnknownKey, string(req.Key))
	}

	if req.WriteID != "" && s.deduper.SeenAndRecord(ctx, req.WriteID) {
		metrics.RecordWriteDuplicate()
		s.logger.Debug(ctx, "duplicate write ignored", logger.String("write_id", req.WriteID))
		score := s.ScoreForDate(date)
		return types.SetResult{
			Date:       date,
			Entry:      s.progress.Get(date),
			Score:      score,
			Previous:   score,
			Transition: scoring.TransitionNone,
			Duplicate:  true,
			Queued:     true,
		}, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	table := s.Goals()
	prev := scoring.Score(table, s.progress.Get(date))
	entry, err := s.progress.Set(date, req.Key, req.Value)
	if err != nil {
		if req.WriteID != "" {
			s.deduper.Unrecord(ctx, req.WriteID)
		}
		return types.SetResult{}, err
	}
	start := time.Now()
	next := scoring.Score(table, entry)
	metrics.RecordScoreComputed(float64(time.Since(start).Microseconds()) / 1000)

	id := req.WriteID
	if id == "" {
		id = uuid.NewString()
	}
	queued := s.enqueue(ctx, model.Write{ID: id, Kind: model.WriteProgress, Date: date, Key: req.Key, Value: req.Value})
	s.enqueueXP(ctx)

	res := types.SetResult{
		Date:       date,
		Entry:      entry,
		Score:      next,
		Previous:   prev,
		Transition: scoring.TransitionBetween(prev, next),
		Queued:     queued,
	}
	s.logger.Debug(ctx, "value recorded",
		logger.String("date", string(date)),
		logger.String("key", string(req.Key)),
		logger.Float64("value", req.Value),
		logger.Int("score", next),
		logger.String("transition", string(res.Transition)),
	)
	return res, nil
}

func (s *Service) enqueueGoals(ctx context.Context, t goals.Table) {
	s.enqueue(ctx, model.Write{ID: uuid.NewString(), Kind: model.WriteGoals, Goals: t.Overrides()})
}

// enqueueXP queues the cumulative XP of the current history. It runs after
// every mutation, since goal edits rescore the past too.
func (s *Service) enqueueXP(ctx context.Context) {
	t := s.Goals()
	total := leveling.XPFromHistory(scoring.History(t, s.progress.All()))
	s.enqueue(ctx, model.Write{ID: uuid.NewString(), Kind: model.WriteXP, XP: total})
	s.publishProgressionOf(t)
}

// enqueue reports whether w was accepted. A rejected write is logged and
// the in-memory state is kept.
func (s *Service) enqueue(ctx context.Context, w model.Write) bool { //nolint:gocritic // hugeParam
	w.EnqueuedAt = time.Now()
	if err := s.writeQueue.Enqueue(ctx, w); err != nil {
		s.failed.Add(1)
		s.logger.Warn(ctx, "persistence write not queued",
			logger.String("write_id", w.ID),
			logger.String("kind", string(w.Kind)),
			logger.Error(err),
		)
		return false
	}
	return true
}

// publishProgressionOf must not take s.mu; Start calls it with the lock held.
func (s *Service) publishProgressionOf(t goals.Table) {
	total := leveling.XPFromHistory(scoring.History(t, s.progress.All()))
	metrics.UpdateProgression(total, leveling.Rank(float64(total)).Level, s.progress.Len())
}

// Progress returns the values recorded on date with the day's score.
func (s *Service) Progress(date progress.DateKey) types.ProgressView {
	entry := s.progress.Get(date)
	score := scoring.Score(s.Goals(), entry)
	return types.ProgressView{Date: date, Values: entry, Score: score, Band: scoring.BandFor(score)}
}

// ScoreForDate scores date with the current table.
func (s *Service) ScoreForDate(date progress.DateKey) int {
	start := time.Now()
	score := scoring.Score(s.Goals(), s.progress.Get(date))
	metrics.RecordScoreComputed(float64(time.Since(start).Microseconds()) / 1000)
	return score
}

// History scores every recorded date with the current table.
func (s *Service) History() map[progress.DateKey]int {
	return scoring.History(s.Goals(), s.progress.All())
}

// HistoryDays returns the latest limit scored days, oldest first. limit <= 0
// returns all of them.
func (s *Service) HistoryDays(limit int) []types.DayScore {
	h := s.History()
	dates := make([]progress.DateKey, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	if limit > 0 && len(dates) > limit {
		dates = dates[len(dates)-limit:]
	}
	out := make([]types.DayScore, 0, len(dates))
	for _, d := range dates {
		out = append(out, types.NewDayScore(d, h[d]))
	}
	return out
}

// RankInfo resolves the rank of the cumulative XP.
func (s *Service) RankInfo() leveling.RankInfo {
	return leveling.Rank(float64(leveling.XPFromHistory(s.History())))
}

// Audit explains the score of date.
func (s *Service) Audit(date progress.DateKey) scoring.Audit {
	return scoring.AuditDay(s.Goals(), date, s.progress.Get(date))
}

// Profile summarises the whole history.
func (s *Service) Profile() types.Profile {
	h := s.History()
	total := leveling.XPFromHistory(h)
	return types.Profile{
		Rank:    leveling.Rank(float64(total)),
		Summary: scoring.Summarize(h, s.Today()),
		TotalXP: total,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"writerCount":     s.writerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"trackedDays":     s.progress.Len(),
		"persistedWrites": s.persisted.Load(),
		"failedWrites":    s.failed.Load(),
	}
	if s.hasStoredXP.Load() {
		stats["storedXP"] = int(s.storedXP.Load())
	}
	if s.started {
		stats["queueLength"] = s.writeQueue.Len(context.Background())
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}

func (s *Service) ensureStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}
