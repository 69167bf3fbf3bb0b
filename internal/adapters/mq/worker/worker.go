// Package worker applies queued persistence writes to the repository ports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/model"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/pkg/logger"
	"github.com/okian/defend100/pkg/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// ErrUnknownKind is returned for writes whose kind no port handles.
var ErrUnknownKind = errors.New("unknown write kind")

// Write abstracts what writers read off the queue.
type Write = model.Write

// Repository is the union of the ports a writer needs.
type Repository interface {
	SaveProgressValue(ctx context.Context, date progress.DateKey, key goals.Key, value float64) error
	SaveGoalOverrides(ctx context.Context, overrides goals.Overrides) error
	SaveCumulativeXP(ctx context.Context, total int) error
}

// Queue defines how writers receive writes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Write
}

// Sink receives the outcome of every write.
type Sink func(model.WriteResult)

// Worker drains writes until the queue channel closes or ctx is cancelled.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker applies writes one at a time. Failures are logged and
// counted; they are never retried.
type InMemoryWorker struct {
	queue   Queue
	repo    Repository
	name    string
	sink    Sink
	timeout time.Duration

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new writer with configuration options.
func NewInMemoryWorker(queue Queue, repo Repository, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   queue,
		repo:    repo,
		name:    "writer",
		timeout: defaultWriteTimeout,
		done:    make(chan struct{}),
		logger:  logger.GetOrNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the writer loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	writes := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case wr, ok := <-writes:
			if !ok {
				return
			}
			w.apply(ctx, wr)
		}
	}
}

// Shutdown waits for the writer to finish draining. The queue must be
// closed first.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) apply(ctx context.Context, wr Write) { //nolint:gocritic // hugeParam: Write is passed by value for channel semantics
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.dispatch(wctx, wr)
	cancel()
	latency := time.Since(start)
	ms := float64(latency.Microseconds()) / 1000

	if err != nil {
		metrics.RecordWriteFailed(string(wr.Kind), ms)
		metrics.RecordErrorByComponent("writer", string(wr.Kind))
		w.logger.Error(ctx, "persistence write failed",
			logger.String("write_id", wr.ID),
			logger.String("kind", string(wr.Kind)),
			logger.Error(err),
		)
	} else {
		metrics.RecordWriteApplied(string(wr.Kind), ms)
		w.logger.Debug(ctx, "persistence write applied",
			logger.String("write_id", wr.ID),
			logger.String("kind", string(wr.Kind)),
		)
	}

	if w.sink != nil {
		w.sink(model.WriteResult{Write: wr, Err: err, Latency: latency})
	}
}

func (w *InMemoryWorker) dispatch(ctx context.Context, wr Write) error { //nolint:gocritic // hugeParam
	switch wr.Kind {
	case model.WriteProgress:
		return w.repo.SaveProgressValue(ctx, wr.Date, wr.Key, wr.Value)
	case model.WriteGoals:
		return w.repo.SaveGoalOverrides(ctx, wr.Goals)
	case model.WriteXP:
		return w.repo.SaveCumulativeXP(ctx, wr.XP)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, wr.Kind)
	}
}

// Pool manages multiple writers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	stopOnce sync.Once
	logger   logger.Logger
}

// NewPool creates count writers. With a single writer, writes are applied
// in submission order.
func NewPool(count int, queue Queue, repo Repository, opts ...Option) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   queue,
		logger:  logger.GetOrNop().Named("writer-pool"),
	}
	for i := 0; i < count; i++ {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("writer-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(queue, repo, wopts...)
	}
	metrics.UpdateWriterCount(count)
	return p
}

// Start starts all writers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits until every pending write has been
// applied or ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	})

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "writer shutdown timed out", logger.Int("writer_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
