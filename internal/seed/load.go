package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/pkg/logger"
)

// Appender receives generated events, typically a repository.Store.
type Appender interface {
	Append(ctx context.Context, e model.Event) error
}

// Stats reports the outcome of Load.
type Stats struct {
	Appended int
	Skipped  int
}

// Load appends events in order. Events rejected as already present are
// skipped so loading the same seed twice is harmless.
func Load(ctx context.Context, dst Appender, events []model.Event, duplicate error) (Stats, error) {
	var st Stats
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("context cancelled during load: %w", err)
		}
		err := dst.Append(ctx, e)
		switch {
		case err == nil:
			st.Appended++
		case duplicate != nil && errors.Is(err, duplicate):
			st.Skipped++
		default:
			return st, fmt.Errorf("append %s: %w", e.ID, err)
		}
	}
	logger.Get().Info(ctx, "seed loaded",
		logger.Int("appended", st.Appended),
		logger.Int("skipped", st.Skipped),
	)
	return st, nil
}
