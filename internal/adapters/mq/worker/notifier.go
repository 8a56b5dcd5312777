package worker

import (
	"context"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/pkg/logger"
	"github.com/okian/pupcare/pkg/metrics"
)

// LogNotifier writes transitions to the log and records them as metrics.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses the global one.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.Get().Named("urgency")
	}
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, t Transition) error {
	metrics.RecordUrgencyTransition(t.From.String(), t.To.String())

	fields := []logger.Field{
		logger.String("from", t.From.String()),
		logger.String("to", t.To.String()),
		logger.String("reason", string(t.Signal.Reason)),
		logger.Bool("overnight", t.Prediction.Overnight),
	}
	if t.Prediction.ExpectedNextTime != nil {
		fields = append(fields, logger.Time("expected", *t.Prediction.ExpectedNextTime))
	}

	switch t.To {
	case model.UrgencyOverdue, model.UrgencyPostIncident:
		n.logger.Warn(ctx, "urgency changed", fields...)
	default:
		n.logger.Info(ctx, "urgency changed", fields...)
	}
	return nil
}
