// Package cli implements the pupctl commands. Every command works on a local
// SQLite event log through the same service the HTTP API uses.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/config"
	"github.com/okian/pupcare/pkg/logger"
)

type app struct {
	dbPath   string
	logLevel string

	svc *service.Service
}

// Execute runs pupctl with args, writing results to out and logs to errOut.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	defer a.close(ctx)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pupctl",
		Short: "Log and inspect a puppy's day",
		Long: `pupctl records caregiving events in a local SQLite log and answers
questions about it: sleep and walk sessions, potty gap history and when the
next potty break is due.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}
	root.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "", "SQLite database path (default: $PUPCARE_SQLITE_PATH or pupcare.db)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.logCmd(),
		a.eventsCmd(),
		a.showCmd(),
		a.editCmd(),
		a.rmCmd(),
		a.sessionsCmd(),
		a.predictCmd(),
		a.gapsCmd(),
		a.summaryCmd(),
		a.coverageCmd(),
		a.seedCmd(),
	)
	return root
}

// open loads configuration and builds the service over the sqlite store.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(a.logLevel); err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	cfg.Store = config.StoreSQLite
	if a.dbPath != "" {
		cfg.SQLitePath = a.dbPath
	}

	a.svc, err = service.NewFromConfig(cfg, service.WithLogger(logger.Get().Named("pupctl")))
	return err
}

func (a *app) close(ctx context.Context) {
	if a.svc == nil {
		return
	}
	if err := a.svc.Stop(ctx); err != nil {
		logger.Get().Warn(ctx, "closing event log failed", logger.Error(err))
	}
	a.svc = nil
}

// at resolves the --at and --ago flags; without either it returns fallback.
func (a *app) at(raw string, ago time.Duration, fallback time.Time) (time.Time, error) {
	switch {
	case raw != "":
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q, want RFC3339: %w", raw, err)
		}
		return t, nil
	case ago > 0:
		return a.svc.Now().Add(-ago), nil
	default:
		return fallback, nil
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
