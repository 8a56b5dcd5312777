// Package worker runs the urgency monitor: workers re-evaluate the potty
// prediction on each signal and report urgency transitions.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/pupcare/internal/adapters/mq/queue"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/pkg/logger"
	"github.com/okian/pupcare/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	poolShutdownTimeout = 30 * time.Second
)

// Evaluator computes the current prediction as of at.
type Evaluator interface {
	Evaluate(ctx context.Context, at time.Time) (model.Prediction, error)
}

// Transition reports a change of urgency.
type Transition struct {
	From       model.Urgency
	To         model.Urgency
	Prediction model.Prediction
	Signal     queue.Signal
}

// Notifier receives urgency transitions. Deciding whether to alert a person
// is the notifier's job.
type Notifier interface {
	Notify(ctx context.Context, t Transition) error
}

// Queue defines how workers receive signals.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Signal
}

// Worker processes signals until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)
	// Shutdown stops the worker and waits for the current signal.
	Shutdown(ctx context.Context) error
}

// tracker remembers the last applied urgency. Results older than the last
// applied signal are discarded so concurrent workers cannot regress state.
type tracker struct {
	mu      sync.Mutex
	current model.Urgency
	at      time.Time
	known   bool
}

func (t *tracker) apply(at time.Time, u model.Urgency) (model.Urgency, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.known && at.Before(t.at) {
		return t.current, false
	}
	prev, changed := t.current, !t.known || t.current != u
	t.current, t.at, t.known = u, at, true
	return prev, changed
}

func (t *tracker) get() (model.Urgency, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.known
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	notifier  Notifier
	tracker   *tracker
	name      string

	shutdown chan struct{}
	once     sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with its own urgency tracker.
func NewInMemoryWorker(q Queue, evaluator Evaluator, notifier Notifier, opts ...Option) *InMemoryWorker {
	return newWorker(q, evaluator, notifier, &tracker{}, opts...)
}

func newWorker(q Queue, evaluator Evaluator, notifier Notifier, tr *tracker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		evaluator: evaluator,
		notifier:  notifier,
		tracker:   tr,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	signals := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-signals:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error processing signal", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Current returns the last urgency the worker observed.
func (w *InMemoryWorker) Current() (model.Urgency, bool) { return w.tracker.get() }

func (w *InMemoryWorker) process(ctx context.Context, s queue.Signal) error {
	start := time.Now()
	defer func() { metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	at := s.At
	if at.IsZero() {
		at = time.Now()
	}
	p, err := w.evaluator.Evaluate(ctx, at)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "evaluate")
		return fmt.Errorf("evaluate after %s: %w", s.Reason, err)
	}

	from, changed := w.tracker.apply(at, p.Urgency)
	if !changed {
		return nil
	}
	t := Transition{From: from, To: p.Urgency, Prediction: p, Signal: s}
	if err := w.notifier.Notify(ctx, t); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "notify")
		return fmt.Errorf("notify %s -> %s: %w", from, p.Urgency, err)
	}
	return nil
}

// Pool manages multiple workers sharing one urgency tracker.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	tracker *tracker
	tick    time.Duration

	shutdown chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a new worker pool. Pool options apply to every worker.
func NewPool(workerCount int, q Queue, evaluator Evaluator, notifier Notifier, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		tracker:  &tracker{},
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	for i := range p.workers {
		p.workers[i] = newWorker(q, evaluator, notifier, p.tracker,
			WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Start starts all workers and, when configured, the periodic tick.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	if p.tick <= 0 {
		return
	}
	enq, ok := p.queue.(interface {
		Enqueue(ctx context.Context, s queue.Signal) bool
	})
	if !ok {
		p.logger.Warn(ctx, "queue does not accept signals, periodic evaluation disabled")
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.shutdown:
				return
			case now := <-ticker.C:
				if !enq.Enqueue(ctx, queue.Signal{Reason: queue.ReasonTick, At: now}) {
					p.logger.Debug(ctx, "tick dropped, queue full")
				}
			}
		}
	}()
}

// Current returns the last urgency observed by any worker.
func (p *Pool) Current() (model.Urgency, bool) { return p.tracker.get() }

// Shutdown closes the queue, stops the tick and waits for the workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.once.Do(func() { close(p.shutdown) })
	p.wg.Wait()

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return firstErr
}
