package service

import (
	"time"

	workerpool "github.com/okian/pupcare/internal/adapters/mq/worker"
	"github.com/okian/pupcare/internal/adapters/repository"
	"github.com/okian/pupcare/internal/domain/dedupe"
	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/prediction"
	"github.com/okian/pupcare/internal/domain/sessions"
	"github.com/okian/pupcare/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the event log backend. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDeduper replaces the idempotency key cache.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithReconstructor replaces the session reconstructor.
func WithReconstructor(r *sessions.Reconstructor) Option {
	return func(s *Service) {
		if r != nil {
			s.reconstructor = r
		}
	}
}

// WithAnalyzer replaces the gap history analyzer.
func WithAnalyzer(a *gaps.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithEstimator replaces the predictive gap estimator.
func WithEstimator(e *prediction.Estimator) Option {
	return func(s *Service) {
		if e != nil {
			s.estimator = e
		}
	}
}

// WithNotifier sets the receiver of urgency transitions.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithWorkerCount sets the number of urgency monitor workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the signal queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithEvaluationInterval sets the periodic re-evaluation tick. Zero disables it.
func WithEvaluationInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.evaluationInterval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides event and sleep link ID generation.
func WithIDGenerator(eventID, linkID func() string) Option {
	return func(s *Service) {
		if eventID != nil {
			s.newEventID = eventID
		}
		if linkID != nil {
			s.newLinkID = linkID
		}
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
