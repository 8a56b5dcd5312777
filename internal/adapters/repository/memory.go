package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/pkg/metrics"
)

// MemoryStore keeps the log in process memory. Reads return copies so callers
// never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	events   map[string]model.Event
	coverage []model.CoverageGap
	opts     options
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		events: make(map[string]model.Event),
		opts:   o,
	}
}

func (s *MemoryStore) Append(ctx context.Context, e model.Event) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryWriteLatency(sinceMs(start)) }()

	if err := validate(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.events[e.ID]; ok {
		metrics.RecordErrorByComponent("repository", "duplicate")
		return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
	}
	s.events[e.ID] = e
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, e model.Event) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryWriteLatency(sinceMs(start)) }()

	if err := validate(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.events[e.ID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: event %s", ErrNotFound, e.ID)
	}
	s.events[e.ID] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.events[id]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	delete(s.events, id)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return e, nil
}

func (s *MemoryStore) Snapshot(ctx context.Context) ([]model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryReadLatency(sinceMs(start)) }()

	s.mu.RLock()
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sortEvents(out)
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *MemoryStore) StartCoverage(ctx context.Context, start time.Time, reason string) (model.CoverageGap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.CoverageGap{}, ErrClosed
	}
	g := model.CoverageGap{ID: s.opts.newID(), Start: start, Reason: reason}
	s.coverage = append(s.coverage, g)
	return g, nil
}

func (s *MemoryStore) EndCoverage(ctx context.Context, id string, end time.Time) (model.CoverageGap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.CoverageGap{}, ErrClosed
	}
	for i, g := range s.coverage {
		if g.ID != id {
			continue
		}
		closed, err := closeCoverage(g, end)
		if err != nil {
			return g, err
		}
		s.coverage[i] = closed
		return closed, nil
	}
	return model.CoverageGap{}, fmt.Errorf("%w: coverage gap %s", ErrNotFound, id)
}

func (s *MemoryStore) CoverageGaps(ctx context.Context) ([]model.CoverageGap, error) {
	s.mu.RLock()
	out := append([]model.CoverageGap(nil), s.coverage...)
	s.mu.RUnlock()

	sortCoverage(out)
	if out == nil {
		out = []model.CoverageGap{}
	}
	return out, nil
}

// Close marks the store closed; later writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
