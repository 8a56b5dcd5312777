// Package repository persists the caregiving event log and coverage gaps.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/okian/pupcare/internal/domain/model"
)

// Store provides read/write access to the event log.
//
// Events are immutable: Replace swaps the whole record for one with the same
// ID and Delete removes it. Snapshots are copies the caller may keep.
type Store interface {
	// Append adds a new event. Returns ErrDuplicate if the ID exists.
	Append(ctx context.Context, e model.Event) error
	// Replace overwrites the event with the same ID. Returns ErrNotFound if absent.
	Replace(ctx context.Context, e model.Event) error
	// Delete removes an event. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
	// Get returns one event. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (model.Event, error)
	// Snapshot returns every event ordered by time, then ID.
	Snapshot(ctx context.Context) ([]model.Event, error)
	// Count returns the number of events in the log.
	Count(ctx context.Context) int

	// StartCoverage opens a coverage gap at start.
	StartCoverage(ctx context.Context, start time.Time, reason string) (model.CoverageGap, error)
	// EndCoverage closes an open coverage gap. Returns ErrNotFound if absent,
	// ErrCoverageClosed if already ended and ErrInvalidRange if end is not
	// after the start.
	EndCoverage(ctx context.Context, id string, end time.Time) (model.CoverageGap, error)
	// CoverageGaps returns every coverage gap ordered by start.
	CoverageGaps(ctx context.Context) ([]model.CoverageGap, error)

	Close() error
}

func newID() string {
	return ulid.Make().String()
}

func validate(e model.Event) error {
	if e.ID == "" {
		return ErrMissingID
	}
	if !e.Type.Valid() {
		return model.ErrUnknownEventType
	}
	return nil
}

func sortEvents(events []model.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].Before(events[j]) })
}

func sortCoverage(gs []model.CoverageGap) {
	sort.Slice(gs, func(i, j int) bool {
		if !gs[i].Start.Equal(gs[j].Start) {
			return gs[i].Start.Before(gs[j].Start)
		}
		return gs[i].ID < gs[j].ID
	})
}

func closeCoverage(g model.CoverageGap, end time.Time) (model.CoverageGap, error) {
	if g.End != nil {
		return g, ErrCoverageClosed
	}
	if !end.After(g.Start) {
		return g, ErrInvalidRange
	}
	g.End = &end
	return g, nil
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
