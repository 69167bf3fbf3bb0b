// Package queue holds pending persistence writes between the service and
// the writers that apply them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/defend100/internal/domain/model"
	"github.com/okian/defend100/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Write is the payload flowing through the queue.
type Write = model.Write

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds w to the queue. It fails with ErrFull or ErrClosed
	// instead of blocking.
	Enqueue(ctx context.Context, w Write) error

	// Dequeue returns the channel writers read from. It is closed, after the
	// remaining writes, once the queue is closed.
	Dequeue(ctx context.Context) <-chan Write

	// Len returns the current number of queued writes.
	Len(ctx context.Context) int

	// Close stops accepting writes. Queued writes stay readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	writes   chan Write
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.writes = make(chan Write, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a write to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, w Write) error { //nolint:gocritic // hugeParam: Write is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordWriteDropped(string(w.Kind), "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordWriteDropped(string(w.Kind), "context_cancelled")
		return err
	}

	select {
	case q.writes <- w:
		metrics.RecordWriteEnqueued(string(w.Kind))
		metrics.UpdateQueueSize(len(q.writes))
		return nil
	default:
		metrics.RecordWriteDropped(string(w.Kind), "queue_full")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the underlying channel; every caller shares it.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Write {
	return q.writes
}

// Len returns the current number of queued writes.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.writes)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting writes.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.writes)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
