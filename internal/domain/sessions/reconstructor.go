package sessions

import (
	"context"
	"time"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/pkg/logger"
	"github.com/okian/pupcare/pkg/metrics"
)

// Result holds both session kinds rebuilt from one snapshot.
type Result struct {
	Sleep []model.SleepSession
	Walks []model.WalkSession
}

// Option applies a configuration option to the Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the logger used for reconstruction diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconstructor) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reconstructor wraps the pure session functions with logging and metrics.
// It keeps no state between calls.
type Reconstructor struct {
	logger logger.Logger
}

// NewReconstructor creates a Reconstructor with configuration options.
func NewReconstructor(opts ...Option) *Reconstructor {
	r := &Reconstructor{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("sessions")
	}
	return r
}

// Reconstruct rebuilds sleep and walk sessions from the snapshot.
func (r *Reconstructor) Reconstruct(ctx context.Context, events []model.Event) Result {
	start := time.Now()

	res := Result{
		Sleep: SleepSessions(events),
		Walks: WalkSessions(events),
	}

	ongoing := 0
	for _, s := range res.Sleep {
		if s.Ongoing() {
			ongoing++
		}
	}
	metrics.RecordReconstructionLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateSessionCounts(len(res.Sleep), ongoing, len(res.Walks))

	r.logger.Debug(ctx, "sessions reconstructed",
		logger.Int("events", len(events)),
		logger.Int("sleep", len(res.Sleep)),
		logger.Int("ongoing", ongoing),
		logger.Int("walks", len(res.Walks)),
	)
	return res
}

// Ongoing returns the sleep currently in progress, if any.
func (r *Reconstructor) Ongoing(ctx context.Context, events []model.Event) (model.SleepSession, bool) {
	s, ok := OngoingSleep(events)
	if ok {
		r.logger.Debug(ctx, "sleep in progress", logger.String("session", s.ID), logger.Time("since", s.StartTime))
	}
	return s, ok
}
