package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pupcare/internal/domain/types"
)

// asOf is the --at flag shared by the read-only analysis commands.
type asOf struct {
	raw string
	ago time.Duration
}

func (f *asOf) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.raw, "at", "", "Evaluate as of this RFC3339 time (default: now)")
	cmd.Flags().DurationVar(&f.ago, "ago", 0, "Evaluate as of this long ago, e.g. 2h")
}

func (f *asOf) resolve(a *app) (time.Time, error) {
	return a.at(f.raw, f.ago, a.svc.Now())
}

func (a *app) predictCmd() *cobra.Command {
	var when asOf
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate when the next potty break is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := when.resolve(a)
			if err != nil {
				return err
			}
			p, err := a.svc.Predict(cmd.Context(), at)
			if err != nil {
				return err
			}
			return printJSON(cmd, types.NewPredictionView(p, at))
		},
	}
	when.bind(cmd)
	return cmd
}

func (a *app) gapsCmd() *cobra.Command {
	var when asOf
	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Show potty gap history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := when.resolve(a)
			if err != nil {
				return err
			}
			st, err := a.svc.GapStats(cmd.Context(), at)
			if err != nil {
				return err
			}
			return printJSON(cmd, types.NewGapStatsView(st))
		},
	}
	when.bind(cmd)
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var when asOf
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show sessions, coverage and the potty prediction together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := when.resolve(a)
			if err != nil {
				return err
			}
			sum, err := a.svc.Summary(cmd.Context(), at)
			if err != nil {
				return err
			}
			return printJSON(cmd, sum.View())
		},
	}
	when.bind(cmd)
	return cmd
}
