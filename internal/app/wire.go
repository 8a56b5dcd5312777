package service

import (
	"fmt"

	"github.com/okian/pupcare/internal/adapters/repository"
	"github.com/okian/pupcare/internal/config"
	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/prediction"
)

// OpenStore opens the event log backend selected by cfg.
func OpenStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// NewFromConfig builds a Service with the store, analyzer and estimator
// described by cfg. Options are applied after the configured ones.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	loc, err := cfg.Estimator.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Estimator.Timezone, err)
	}
	analyzerOpts, err := cfg.Estimator.AnalyzerOptions()
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithStore(store),
		WithAnalyzer(gaps.NewAnalyzer(analyzerOpts...)),
		WithEstimator(prediction.NewEstimator(
			prediction.WithSettings(cfg.Estimator.Settings()),
			prediction.WithLocation(loc),
		)),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.EventQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithEvaluationInterval(cfg.EvaluationInterval()),
	}
	return New(append(base, opts...)...), nil
}
