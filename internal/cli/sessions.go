package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/pupcare/internal/domain/types"
)

type ongoingView struct {
	Ongoing bool                    `json:"ongoing"`
	Session *types.SleepSessionView `json:"session,omitempty"`
}

func (a *app) sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show sessions reconstructed from the log",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "sleep",
			Short: "List sleep sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ss, err := a.svc.SleepSessions(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, types.NewSleepSessionViews(ss, a.svc.Now()))
			},
		},
		&cobra.Command{
			Use:   "ongoing",
			Short: "Show the sleep in progress, if any",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, ok, err := a.svc.OngoingSleep(cmd.Context())
				if err != nil {
					return err
				}
				v := ongoingView{Ongoing: ok}
				if ok {
					sv := types.NewSleepSessionView(s, a.svc.Now())
					v.Session = &sv
				}
				return printJSON(cmd, v)
			},
		},
		&cobra.Command{
			Use:   "walks",
			Short: "List walks with the potty events logged during them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ws, err := a.svc.WalkSessions(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, types.NewWalkSessionViews(ws))
			},
		},
	)
	return cmd
}
