// Package types contains the JSON views exchanged with clients.
package types

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/sessions"
)

// EventView is the wire form of a log event.
type EventView struct {
	ID              string     `json:"id,omitempty"`
	Time            *time.Time `json:"time,omitempty"`
	Type            string     `json:"type"`
	SessionLinkID   string     `json:"session_link_id,omitempty"`
	ParentID        string     `json:"parent_id,omitempty"`
	Location        string     `json:"location,omitempty"`
	DurationMinutes float64    `json:"duration_minutes,omitempty"`
	Value           *float64   `json:"value,omitempty"`
	MediaRef        string     `json:"media_ref,omitempty"`
	Note            string     `json:"note,omitempty"`
}

// NewEventView converts an event for output.
func NewEventView(e model.Event) EventView {
	t := e.Time
	v := EventView{
		ID:              e.ID,
		Time:            &t,
		Type:            e.Type.String(),
		SessionLinkID:   e.SessionLinkID,
		ParentID:        e.ParentID,
		DurationMinutes: e.Duration.Minutes(),
		Value:           e.Value,
		MediaRef:        e.MediaRef,
		Note:            e.Note,
	}
	if e.Location != model.LocationUnknown {
		v.Location = e.Location.String()
	}
	return v
}

// NewEventViews converts a slice of events, never returning nil.
func NewEventViews(events []model.Event) []EventView {
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, NewEventView(e))
	}
	return out
}

// Event parses the view. A missing time is left zero for the caller to fill.
func (v EventView) Event() (model.Event, error) {
	typ, err := model.ParseEventType(v.Type)
	if err != nil {
		return model.Event{}, err
	}
	loc, err := model.ParseLocation(v.Location)
	if err != nil {
		return model.Event{}, err
	}
	if v.DurationMinutes < 0 || math.IsNaN(v.DurationMinutes) {
		return model.Event{}, fmt.Errorf("%w: duration_minutes %v", ErrInvalidView, v.DurationMinutes)
	}
	e := model.Event{
		ID:            v.ID,
		Type:          typ,
		SessionLinkID: v.SessionLinkID,
		ParentID:      v.ParentID,
		Location:      loc,
		Duration:      time.Duration(v.DurationMinutes * float64(time.Minute)),
		Value:         v.Value,
		MediaRef:      v.MediaRef,
		Note:          v.Note,
	}
	if v.Time != nil {
		e.Time = *v.Time
	}
	return e, nil
}

// SleepSessionView is the wire form of a sleep session.
type SleepSessionView struct {
	ID              string     `json:"id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	StartEventID    string     `json:"start_event_id"`
	EndEventID      string     `json:"end_event_id,omitempty"`
	Ongoing         bool       `json:"ongoing"`
	DurationMinutes float64    `json:"duration_minutes"`
}

// NewSleepSessionView converts a session; ongoing sessions are measured to now.
func NewSleepSessionView(s model.SleepSession, now time.Time) SleepSessionView {
	return SleepSessionView{
		ID:              s.ID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		StartEventID:    s.StartEventID,
		EndEventID:      s.EndEventID,
		Ongoing:         s.Ongoing(),
		DurationMinutes: s.Duration(now).Minutes(),
	}
}

// NewSleepSessionViews converts a slice of sessions, never returning nil.
func NewSleepSessionViews(ss []model.SleepSession, now time.Time) []SleepSessionView {
	out := make([]SleepSessionView, 0, len(ss))
	for _, s := range ss {
		out = append(out, NewSleepSessionView(s, now))
	}
	return out
}

// WalkSessionView is the wire form of a walk and its potty breaks.
type WalkSessionView struct {
	ID      string      `json:"id"`
	Walk    EventView   `json:"walk"`
	Potty   []EventView `json:"potty"`
	HadPee  bool        `json:"had_pee"`
	HadPoop bool        `json:"had_poop"`
}

// NewWalkSessionViews converts a slice of walks, never returning nil.
func NewWalkSessionViews(ws []model.WalkSession) []WalkSessionView {
	out := make([]WalkSessionView, 0, len(ws))
	for _, w := range ws {
		out = append(out, WalkSessionView{
			ID:      w.ID,
			Walk:    NewEventView(w.WalkEvent),
			Potty:   NewEventViews(w.ChildPottyEvents),
			HadPee:  w.HadPee(),
			HadPoop: w.HadPoop(),
		})
	}
	return out
}

// PredictionView is the wire form of a prediction.
type PredictionView struct {
	ExpectedNextTime  *time.Time `json:"expected_next_time,omitempty"`
	MinutesUntil      *float64   `json:"minutes_until,omitempty"`
	Urgency           string     `json:"urgency"`
	BaseGapMinutes    float64    `json:"base_gap_minutes,omitempty"`
	GapMinutes        float64    `json:"gap_minutes,omitempty"`
	RoundedGapMinutes int        `json:"rounded_gap_minutes,omitempty"`
	Trigger           string     `json:"trigger"`
	HistorySufficient bool       `json:"history_sufficient"`
	Overnight         bool       `json:"overnight"`
	LastOccurrenceID  string     `json:"last_occurrence_id,omitempty"`
}

// NewPredictionView converts a prediction computed as of now.
func NewPredictionView(p model.Prediction, now time.Time) PredictionView {
	v := PredictionView{
		ExpectedNextTime:  p.ExpectedNextTime,
		Urgency:           p.Urgency.String(),
		BaseGapMinutes:    p.BaseGap.Minutes(),
		GapMinutes:        p.GapMinutes,
		RoundedGapMinutes: int(p.Gap / time.Minute),
		Trigger:           p.Trigger.String(),
		HistorySufficient: p.HistorySufficient,
		Overnight:         p.Overnight,
		LastOccurrenceID:  p.LastOccurrenceID,
	}
	if p.ExpectedNextTime != nil {
		m := p.ExpectedNextTime.Sub(now).Minutes()
		v.MinutesUntil = &m
	}
	return v
}

// CoverageGapView is the wire form of a coverage gap.
type CoverageGapView struct {
	ID     string     `json:"id"`
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
	Reason string     `json:"reason,omitempty"`
	Active bool       `json:"active"`
}

// NewCoverageGapViews converts coverage gaps as of now, never returning nil.
func NewCoverageGapViews(gs []model.CoverageGap, now time.Time) []CoverageGapView {
	out := make([]CoverageGapView, 0, len(gs))
	for _, g := range gs {
		out = append(out, CoverageGapView{
			ID:     g.ID,
			Start:  g.Start,
			End:    g.End,
			Reason: g.Reason,
			Active: g.ActiveAt(now),
		})
	}
	return out
}

// SleepSummaryView is the wire form of aggregated sleep.
type SleepSummaryView struct {
	Completed      int     `json:"completed"`
	Ongoing        int     `json:"ongoing"`
	TotalMinutes   float64 `json:"total_minutes"`
	LongestMinutes float64 `json:"longest_minutes"`
}

// NewSleepSummaryView converts aggregated sleep.
func NewSleepSummaryView(s sessions.SleepSummary) SleepSummaryView {
	return SleepSummaryView{
		Completed:      s.Completed,
		Ongoing:        s.Ongoing,
		TotalMinutes:   s.Total.Minutes(),
		LongestMinutes: s.Longest.Minutes(),
	}
}

// GapStatsView is the wire form of potty gap history.
type GapStatsView struct {
	Occurrences   int       `json:"occurrences"`
	Sufficient    bool      `json:"sufficient"`
	Statistic     string    `json:"statistic"`
	GapMinutes    []float64 `json:"gap_minutes"`
	MedianMinutes float64   `json:"median_minutes,omitempty"`
	MeanMinutes   float64   `json:"mean_minutes,omitempty"`
}

// NewGapStatsView converts gap statistics. Median and mean are omitted when
// the history is insufficient.
func NewGapStatsView(st gaps.Stats) GapStatsView {
	v := GapStatsView{
		Occurrences: st.Occurrences,
		Sufficient:  st.Sufficient,
		Statistic:   st.Statistic.String(),
		GapMinutes:  make([]float64, 0, len(st.Gaps)),
	}
	for _, g := range st.Gaps {
		v.GapMinutes = append(v.GapMinutes, g.Minutes())
	}
	if st.Sufficient {
		v.MedianMinutes = st.Median.Minutes()
		v.MeanMinutes = st.Mean.Minutes()
	}
	return v
}

// SummaryView is the wire form of the day overview.
type SummaryView struct {
	At           time.Time         `json:"at"`
	Events       int               `json:"events"`
	Sleep        SleepSummaryView  `json:"sleep"`
	Ongoing      *SleepSessionView `json:"ongoing_sleep,omitempty"`
	Walks        []WalkSessionView `json:"walks"`
	Standalone   int               `json:"standalone_potty"`
	Prediction   PredictionView    `json:"prediction"`
	CoverageGaps []CoverageGapView `json:"coverage_gaps"`
}
