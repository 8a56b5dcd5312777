package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/types"
)

func (a *app) coverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Declare periods when nobody was watching",
	}
	cmd.AddCommand(a.coverageStartCmd(), a.coverageEndCmd(), a.coverageListCmd())
	return cmd
}

func (a *app) coverageStartCmd() *cobra.Command {
	var (
		when   asOf
		reason string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a coverage gap; predictions pause until it ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := when.resolve(a)
			if err != nil {
				return err
			}
			g, err := a.svc.StartCoverage(cmd.Context(), at, reason)
			if err != nil {
				return err
			}
			return printJSON(cmd, coverageView(g, a.svc.Now()))
		},
	}
	when.bind(cmd)
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why observation stopped")
	return cmd
}

func (a *app) coverageEndCmd() *cobra.Command {
	var when asOf
	cmd := &cobra.Command{
		Use:   "end ID",
		Short: "End a coverage gap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := when.resolve(a)
			if err != nil {
				return err
			}
			g, err := a.svc.EndCoverage(cmd.Context(), args[0], at)
			if err != nil {
				return err
			}
			return printJSON(cmd, coverageView(g, a.svc.Now()))
		},
	}
	when.bind(cmd)
	return cmd
}

func (a *app) coverageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List coverage gaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gs, err := a.svc.CoverageGaps(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, types.NewCoverageGapViews(gs, a.svc.Now()))
		},
	}
}

func coverageView(g model.CoverageGap, now time.Time) types.CoverageGapView {
	return types.NewCoverageGapViews([]model.CoverageGap{g}, now)[0]
}
