// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/pupcare/internal/adapters/mq/queue"
	workerpool "github.com/okian/pupcare/internal/adapters/mq/worker"
	"github.com/okian/pupcare/internal/adapters/repository"
	"github.com/okian/pupcare/internal/domain/dedupe"
	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/prediction"
	"github.com/okian/pupcare/internal/domain/sessions"
	"github.com/okian/pupcare/internal/domain/types"
	"github.com/okian/pupcare/pkg/logger"
	"github.com/okian/pupcare/pkg/metrics"
)

// Service implements the caregiving log use cases on top of a Store.
type Service struct {
	mu sync.RWMutex
	// writeMu serialises LogEvent and ReplaceEvent so idempotency checks and
	// wake links see every earlier write.
	writeMu sync.Mutex

	// Core components
	store         repository.Store
	deduper       dedupe.Deduper
	reconstructor *sessions.Reconstructor
	analyzer      *gaps.Analyzer
	estimator     *prediction.Estimator

	// Urgency monitor, created by Start
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	notifier   workerpool.Notifier

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	evaluationInterval time.Duration

	clock      func() time.Time
	newEventID func() string
	newLinkID  func() string

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:        2,
		queueSize:          1024,
		dedupeSize:         10_000,
		evaluationInterval: time.Minute,
		clock:              time.Now,
		newEventID:         func() string { return ulid.Make().String() },
		newLinkID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	if s.reconstructor == nil {
		s.reconstructor = sessions.NewReconstructor()
	}
	if s.analyzer == nil {
		s.analyzer = gaps.NewAnalyzer()
	}
	if s.estimator == nil {
		s.estimator = prediction.NewEstimator()
	}
	return s
}

// Start creates the urgency monitor and starts its workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting pupcare service...")

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	notifier := s.notifier
	if notifier == nil {
		notifier = workerpool.NewLogNotifier(nil)
	}
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s, notifier,
		workerpool.WithTickInterval(s.evaluationInterval),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "pupcare service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("evaluationInterval", s.evaluationInterval),
	)

	// Evaluate once so the current urgency is known before the first event.
	s.eventQueue.Enqueue(ctx, eventqueue.Signal{Reason: eventqueue.ReasonTick, At: s.clock()})
	return nil
}

// Stop gracefully shuts down the monitor and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info(ctx, "stopping pupcare service...")

	var errs []error
	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("worker pool: %w", err))
		}
		s.workerPool = nil
		s.eventQueue = nil
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "pupcare service stopped")
	return errors.Join(errs...)
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.clock() }

// LogEvent appends an event to the log.
//
// A missing ID or time is filled in. A sleep without a link receives a fresh
// one, and a wake without a link is stamped with the link of the sleep in
// progress at its time. When key is not empty it is an idempotency key: a
// retry with the same key returns the originally stored event and true.
func (s *Service) LogEvent(ctx context.Context, e model.Event, key string) (model.Event, bool, error) {
	if !e.Type.Valid() {
		return model.Event{}, false, fmt.Errorf("%w: %w", ErrInvalidEvent, model.ErrUnknownEventType)
	}
	if e.Duration < 0 {
		return model.Event{}, false, fmt.Errorf("%w: negative duration", ErrInvalidEvent)
	}
	if e.ID == "" {
		e.ID = s.newEventID()
	}
	if e.Time.IsZero() {
		e.Time = s.clock()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if key != "" {
		if original, seen := s.deduper.SeenAndRecord(ctx, key, e.ID); seen {
			stored, err := s.store.Get(ctx, original)
			switch {
			case err == nil:
				metrics.RecordEventDuplicate()
				s.logger.Debug(ctx, "duplicate event detected, skipping",
					logger.String("key", key),
					logger.String("eventID", original),
				)
				return stored, true, nil
			case errors.Is(err, repository.ErrNotFound):
				// The first event was deleted since; the retry logs a new one.
				s.deduper.Unrecord(ctx, key)
				s.deduper.SeenAndRecord(ctx, key, e.ID)
				s.logger.Debug(ctx, "idempotency key outlived its event",
					logger.String("key", key),
					logger.String("eventID", original),
				)
			default:
				return model.Event{}, true, fmt.Errorf("idempotent replay %s: %w", original, err)
			}
		}
	}

	if err := s.stampLink(ctx, &e); err != nil {
		s.unrecord(ctx, key)
		return model.Event{}, false, err
	}
	if err := s.store.Append(ctx, e); err != nil {
		s.unrecord(ctx, key)
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordEventDuplicate()
		}
		return model.Event{}, false, fmt.Errorf("append %s: %w", e.ID, err)
	}

	metrics.RecordEventLogged(e.Type.String())
	metrics.UpdateEventsTotal(s.store.Count(ctx))
	s.logger.Debug(ctx, "event logged",
		logger.String("eventID", e.ID),
		logger.String("type", e.Type.String()),
		logger.Time("time", e.Time),
	)
	s.signal(ctx, eventqueue.ReasonEventLogged, e.ID)
	return e, false, nil
}

// stampLink fills in the session link of sleeps and wakes. A link is closed
// by at most one wake: a wake naming a closed link is rejected, and a wake
// whose ongoing sleep is already closed by a later wake stays unlinked.
func (s *Service) stampLink(ctx context.Context, e *model.Event) error {
	switch {
	case e.Type.IsOpening():
		if e.SessionLinkID == "" {
			e.SessionLinkID = s.newLinkID()
		}
		return nil
	case !e.Type.IsClosing():
		return nil
	}

	events, err := s.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if e.SessionLinkID != "" {
		if by, ok := closedBy(events, e.SessionLinkID, e.ID); ok {
			return fmt.Errorf("%w: link %s already closed by %s", ErrInvalidEvent, e.SessionLinkID, by)
		}
		return nil
	}

	var before []model.Event
	for _, ev := range events {
		if !ev.Time.After(e.Time) {
			before = append(before, ev)
		}
	}
	link, ok := sessions.OngoingSleepLinkID(before)
	if !ok {
		return nil
	}
	if by, closed := closedBy(events, link, e.ID); closed {
		s.logger.Debug(ctx, "wake left unlinked, sleep already closed",
			logger.String("eventID", e.ID),
			logger.String("link", link),
			logger.String("closedBy", by),
		)
		return nil
	}
	e.SessionLinkID = link
	return nil
}

// closedBy returns the wake other than self that carries link.
func closedBy(events []model.Event, link, self string) (string, bool) {
	for _, ev := range events {
		if ev.Type.IsClosing() && ev.SessionLinkID == link && ev.ID != self {
			return ev.ID, true
		}
	}
	return "", false
}

func (s *Service) unrecord(ctx context.Context, key string) {
	if key != "" {
		s.deduper.Unrecord(ctx, key)
	}
}

// ReplaceEvent swaps the stored event with the same ID.
func (s *Service) ReplaceEvent(ctx context.Context, e model.Event) error {
	if e.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidEvent)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if e.Type.IsClosing() && e.SessionLinkID != "" {
		events, err := s.store.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if by, ok := closedBy(events, e.SessionLinkID, e.ID); ok {
			return fmt.Errorf("%w: link %s already closed by %s", ErrInvalidEvent, e.SessionLinkID, by)
		}
	}
	if e.Time.IsZero() {
		old, err := s.store.Get(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("replace %s: %w", e.ID, err)
		}
		e.Time = old.Time
	}
	if err := s.store.Replace(ctx, e); err != nil {
		return fmt.Errorf("replace %s: %w", e.ID, err)
	}
	metrics.RecordEventReplaced()
	s.signal(ctx, eventqueue.ReasonEventReplaced, e.ID)
	return nil
}

// DeleteEvent removes an event from the log.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	metrics.RecordEventDeleted()
	metrics.UpdateEventsTotal(s.store.Count(ctx))
	s.signal(ctx, eventqueue.ReasonEventDeleted, id)
	return nil
}

// Event returns one event.
func (s *Service) Event(ctx context.Context, id string) (model.Event, error) {
	return s.store.Get(ctx, id)
}

// EventFilter narrows Events. Zero values do not filter.
type EventFilter struct {
	Since time.Time
	Until time.Time
	Types []model.EventType
}

func (f EventFilter) match(e model.Event) bool {
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Time.After(f.Until) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Events returns logged events ordered by time.
func (s *Service) Events(ctx context.Context, f EventFilter) ([]model.Event, error) {
	events, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := events[:0]
	for _, e := range events {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SleepSessions reconstructs every sleep session.
func (s *Service) SleepSessions(ctx context.Context) ([]model.SleepSession, error) {
	events, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.reconstructor.Reconstruct(ctx, events).Sleep, nil
}

// OngoingSleep returns the sleep in progress, if any.
func (s *Service) OngoingSleep(ctx context.Context) (model.SleepSession, bool, error) {
	events, err := s.store.Snapshot(ctx)
	if err != nil {
		return model.SleepSession{}, false, err
	}
	sl, ok := s.reconstructor.Ongoing(ctx, events)
	return sl, ok, nil
}

// WalkSessions reconstructs every walk with its potty events.
func (s *Service) WalkSessions(ctx context.Context) ([]model.WalkSession, error) {
	events, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.reconstructor.Reconstruct(ctx, events).Walks, nil
}

// Predict estimates the next potty occurrence as of at.
func (s *Service) Predict(ctx context.Context, at time.Time) (model.Prediction, error) {
	events, coverage, err := s.load(ctx)
	if err != nil {
		return model.Prediction{}, err
	}
	return s.estimator.EstimateFromLog(ctx, events, coverage, at, s.analyzer), nil
}

// Evaluate implements the urgency monitor's evaluator.
func (s *Service) Evaluate(ctx context.Context, at time.Time) (model.Prediction, error) {
	return s.Predict(ctx, at)
}

// GapStats returns the raw gap statistics for the predicted types as of at.
func (s *Service) GapStats(ctx context.Context, at time.Time) (gaps.Stats, error) {
	events, err := s.store.Snapshot(ctx)
	if err != nil {
		return gaps.Stats{}, err
	}
	return s.analyzer.Analyze(events, at, s.estimator.Targets()...), nil
}

// StartCoverage declares that observation stopped at start.
func (s *Service) StartCoverage(ctx context.Context, start time.Time, reason string) (model.CoverageGap, error) {
	if start.IsZero() {
		start = s.clock()
	}
	g, err := s.store.StartCoverage(ctx, start, reason)
	if err != nil {
		return model.CoverageGap{}, fmt.Errorf("start coverage gap: %w", err)
	}
	s.signal(ctx, eventqueue.ReasonCoverage, g.ID)
	return g, nil
}

// EndCoverage declares that observation resumed at end.
func (s *Service) EndCoverage(ctx context.Context, id string, end time.Time) (model.CoverageGap, error) {
	if end.IsZero() {
		end = s.clock()
	}
	g, err := s.store.EndCoverage(ctx, id, end)
	if err != nil {
		return model.CoverageGap{}, fmt.Errorf("end coverage gap %s: %w", id, err)
	}
	s.signal(ctx, eventqueue.ReasonCoverage, g.ID)
	return g, nil
}

// CoverageGaps returns every declared coverage gap.
func (s *Service) CoverageGaps(ctx context.Context) ([]model.CoverageGap, error) {
	return s.store.CoverageGaps(ctx)
}

// Summary is a consistent view of the log as of one instant.
type Summary struct {
	At           time.Time
	Events       int
	Sleep        []model.SleepSession
	Ongoing      *model.SleepSession
	SleepStats   sessions.SleepSummary
	Walks        []model.WalkSession
	Standalone   []model.Event
	Prediction   model.Prediction
	CoverageGaps []model.CoverageGap
}

// View converts the summary for output.
func (s Summary) View() types.SummaryView {
	v := types.SummaryView{
		At:           s.At,
		Events:       s.Events,
		Sleep:        types.NewSleepSummaryView(s.SleepStats),
		Walks:        types.NewWalkSessionViews(s.Walks),
		Standalone:   len(s.Standalone),
		Prediction:   types.NewPredictionView(s.Prediction, s.At),
		CoverageGaps: types.NewCoverageGapViews(s.CoverageGaps, s.At),
	}
	if s.Ongoing != nil {
		o := types.NewSleepSessionView(*s.Ongoing, s.At)
		v.Ongoing = &o
	}
	return v
}

// Summary reconstructs sessions and the prediction from a single snapshot.
func (s *Service) Summary(ctx context.Context, at time.Time) (Summary, error) {
	events, coverage, err := s.load(ctx)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{At: at, Events: len(events), CoverageGaps: coverage}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res := s.reconstructor.Reconstruct(gctx, events)
		sum.Sleep, sum.Walks = res.Sleep, res.Walks
		sum.SleepStats = sessions.SleepStats(res.Sleep, at)
		sum.Standalone = sessions.Standalone(events)
		return nil
	})
	g.Go(func() error {
		if sl, ok := s.reconstructor.Ongoing(gctx, events); ok {
			sum.Ongoing = &sl
		}
		return nil
	})
	g.Go(func() error {
		sum.Prediction = s.estimator.EstimateFromLog(gctx, events, coverage, at, s.analyzer)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// load reads the event log and coverage gaps concurrently.
func (s *Service) load(ctx context.Context) ([]model.Event, []model.CoverageGap, error) {
	var (
		events   []model.Event
		coverage []model.CoverageGap
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.store.Snapshot(gctx)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		coverage, err = s.store.CoverageGaps(gctx)
		if err != nil {
			return fmt.Errorf("coverage gaps: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return events, coverage, nil
}

// signal asks the urgency monitor to re-evaluate. A full queue drops the
// signal; the periodic tick catches up.
func (s *Service) signal(ctx context.Context, reason eventqueue.Reason, id string) {
	s.mu.RLock()
	q := s.eventQueue
	s.mu.RUnlock()
	if q == nil {
		return
	}
	if !q.Enqueue(ctx, eventqueue.Signal{Reason: reason, EventID: id, At: s.clock()}) {
		s.logger.Debug(ctx, "signal dropped", logger.String("reason", string(reason)))
	}
}

// Urgency returns the urgency last observed by the monitor.
func (s *Service) Urgency() (model.Urgency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.workerPool == nil {
		return model.UrgencyUnknown, false
	}
	return s.workerPool.Current()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.deduper.Size(),
		"totalEvents": s.store.Count(ctx),
	}
	if coverage, err := s.store.CoverageGaps(ctx); err == nil {
		stats["coverageGaps"] = len(coverage)
		metrics.UpdateCoverageGaps(len(coverage))
	}
	if s.started {
		stats["queueLength"] = s.eventQueue.Len(ctx)
		if u, ok := s.workerPool.Current(); ok {
			stats["urgency"] = u.String()
		}
	}
	return stats
}
