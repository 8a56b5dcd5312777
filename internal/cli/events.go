package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/types"
)

// eventFlags holds the event fields settable from the command line.
type eventFlags struct {
	at       string
	ago      time.Duration
	typ      string
	location string
	duration time.Duration
	value    float64
	note     string
	media    string
	parent   string
	link     string
}

func (f *eventFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.at, "at", "", "Event time, RFC3339 (default: now)")
	fs.DurationVar(&f.ago, "ago", 0, "Event time relative to now, e.g. 15m")
	fs.StringVarP(&f.location, "location", "l", "", "Potty location: outdoor or indoor")
	fs.DurationVar(&f.duration, "duration", 0, "Duration, e.g. 20m")
	fs.Float64Var(&f.value, "value", 0, "Numeric value, e.g. weight in kg")
	fs.StringVarP(&f.note, "note", "n", "", "Free-text note")
	fs.StringVar(&f.media, "media", "", "Photo or video reference")
	fs.StringVar(&f.parent, "parent", "", "ID of the containing event, e.g. a walk")
	fs.StringVar(&f.link, "link", "", "Sleep session link ID")
}

// apply copies every flag the user set onto e.
func (f *eventFlags) apply(cmd *cobra.Command, a *app, e *model.Event) error {
	fs := cmd.Flags()
	if fs.Changed("type") {
		t, err := model.ParseEventType(f.typ)
		if err != nil {
			return err
		}
		e.Type = t
	}
	if fs.Changed("at") || fs.Changed("ago") {
		t, err := a.at(f.at, f.ago, e.Time)
		if err != nil {
			return err
		}
		e.Time = t
	}
	if fs.Changed("location") {
		loc, err := model.ParseLocation(f.location)
		if err != nil {
			return err
		}
		e.Location = loc
	}
	if fs.Changed("duration") {
		e.Duration = f.duration
	}
	if fs.Changed("value") {
		v := f.value
		e.Value = &v
	}
	if fs.Changed("note") {
		e.Note = f.note
	}
	if fs.Changed("media") {
		e.MediaRef = f.media
	}
	if fs.Changed("parent") {
		e.ParentID = f.parent
	}
	if fs.Changed("link") {
		e.SessionLinkID = f.link
	}
	return nil
}

func (a *app) logCmd() *cobra.Command {
	var (
		f  eventFlags
		id string
	)
	cmd := &cobra.Command{
		Use:   "log TYPE",
		Short: "Log an event, e.g. pupctl log pee -l outdoor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseEventType(args[0])
			if err != nil {
				return err
			}
			e := model.Event{ID: id, Type: t}
			if err := f.apply(cmd, a, &e); err != nil {
				return err
			}
			stored, _, err := a.svc.LogEvent(cmd.Context(), e, "")
			if err != nil {
				return err
			}
			return printJSON(cmd, types.NewEventView(stored))
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&id, "id", "", "Event ID (default: generated)")
	return cmd
}

func (a *app) eventsCmd() *cobra.Command {
	var (
		since, until string
		typeNames    []string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events in time order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				flt service.EventFilter
				err error
			)
			if flt.Since, err = a.at(since, 0, time.Time{}); err != nil {
				return err
			}
			if flt.Until, err = a.at(until, 0, time.Time{}); err != nil {
				return err
			}
			for _, name := range typeNames {
				t, err := model.ParseEventType(name)
				if err != nil {
					return err
				}
				flt.Types = append(flt.Types, t)
			}
			events, err := a.svc.Events(cmd.Context(), flt)
			if err != nil {
				return err
			}
			return printJSON(cmd, types.NewEventViews(events))
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Only events at or after this RFC3339 time")
	cmd.Flags().StringVar(&until, "until", "", "Only events at or before this RFC3339 time")
	cmd.Flags().StringSliceVarP(&typeNames, "type", "t", nil, "Only these event types (repeatable)")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.svc.Event(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, types.NewEventView(e))
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a logged event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.svc.Event(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := f.apply(cmd, a, &e); err != nil {
				return err
			}
			if err := a.svc.ReplaceEvent(cmd.Context(), e); err != nil {
				return err
			}
			return printJSON(cmd, types.NewEventView(e))
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&f.typ, "type", "", "Event type")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteEvent(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}
