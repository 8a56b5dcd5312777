package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pupcare/internal/adapters/repository"
	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/seed"
)

// logAppender feeds generated events through the service so metrics and
// validation apply as for logged events.
type logAppender struct {
	svc *service.Service
}

func (l logAppender) Append(ctx context.Context, e model.Event) error {
	_, _, err := l.svc.LogEvent(ctx, e, "")
	return err
}

func (a *app) seedCmd() *cobra.Command {
	var (
		cfg   = seed.DefaultConfig()
		start string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the log with synthetic days",
		Long: `seed generates a reproducible run of caregiving days: meals, naps,
walks, potty breaks and a night sleep left open at the end. Running it twice
with the same settings adds nothing new.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if start != "" {
				t, err := time.ParseInLocation(time.DateOnly, start, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --start %q, want YYYY-MM-DD: %w", start, err)
				}
				cfg.Start = t
			} else {
				cfg.Start = a.svc.Now().AddDate(0, 0, -cfg.Days+1)
			}

			events, err := seed.Generate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			st, err := seed.Load(cmd.Context(), logAppender{svc: a.svc}, events, repository.ErrDuplicate)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "appended %d events, skipped %d already present\n", st.Appended, st.Skipped)
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&start, "start", "", "First day, YYYY-MM-DD (default: so the last day is today)")
	fs.IntVar(&cfg.Days, "days", cfg.Days, "Number of days")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	fs.IntVar(&cfg.GapMinutes, "gap", cfg.GapMinutes, "Typical minutes between pees while awake")
	fs.Float64Var(&cfg.AccidentRate, "accident-rate", cfg.AccidentRate, "Share of pees logged indoors, 0 to 1")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Days generated in parallel")
	return cmd
}
