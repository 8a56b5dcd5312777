// Package queue carries re-evaluation signals from writers to the urgency
// monitor.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/pupcare/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Reason says why a prediction should be re-evaluated.
type Reason string

// Signal reasons.
const (
	ReasonEventLogged   Reason = "event_logged"
	ReasonEventReplaced Reason = "event_replaced"
	ReasonEventDeleted  Reason = "event_deleted"
	ReasonCoverage      Reason = "coverage_changed"
	ReasonTick          Reason = "tick"
)

// Signal asks the monitor to recompute the prediction as of At.
type Signal struct {
	Reason  Reason
	EventID string
	At      time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a signal. Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, s Signal) bool
	// Dequeue returns a channel that receives signals until the queue is
	// closed or ctx is done.
	Dequeue(ctx context.Context) <-chan Signal
	// Len returns the current number of queued signals.
	Len(ctx context.Context) int
	// Close stops accepting signals and closes dequeue channels once drained.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	signals  chan Signal
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.signals = make(chan Signal, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, s Signal) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return false
	}

	select {
	case q.signals <- s:
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	default:
		metrics.RecordQueueRejected("queue_full")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Signal {
	out := make(chan Signal)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-q.signals:
				if !ok {
					return
				}
				select {
				case out <- s:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len(ctx context.Context) int {
	q.observe()
	return len(q.signals)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.signals)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.signals)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
