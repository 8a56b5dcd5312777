// Package prediction estimates when the next occurrence of a recurring event
// is due and classifies how urgent it is.
package prediction

import (
	"context"
	"math"
	"time"

	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/sessions"
	"github.com/okian/pupcare/pkg/logger"
	"github.com/okian/pupcare/pkg/metrics"
)

// Default estimator settings.
const (
	DefaultGapMinutes           = 90
	DefaultPostMealMultiplier   = 0.75
	DefaultPostSleepMultiplier  = 0.5
	DefaultMinNapMinutes        = 20
	DefaultTriggerWindowMinutes = 30
	DefaultBedtimeHour          = 22
	DefaultMorningHour          = 6
	DefaultAttentionMinutes     = 20
	DefaultDueSoonMinutes       = 10
	DefaultJustOccurredMinutes  = 5
	DefaultPostIncidentMinutes  = 15
)

// Settings holds every tunable the estimator reads. The estimator never fills
// in missing values; the configuration layer must supply a complete record.
type Settings struct {
	DefaultGapMinutes    int
	PostMealMultiplier   float64
	PostSleepMultiplier  float64
	MinNapMinutes        int
	TriggerWindowMinutes int
	BedtimeHour          int
	MorningHour          int
	AttentionMinutes     int
	DueSoonMinutes       int
	JustOccurredMinutes  int
	PostIncidentMinutes  int
}

// DefaultSettings returns the stock settings.
func DefaultSettings() Settings {
	return Settings{
		DefaultGapMinutes:    DefaultGapMinutes,
		PostMealMultiplier:   DefaultPostMealMultiplier,
		PostSleepMultiplier:  DefaultPostSleepMultiplier,
		MinNapMinutes:        DefaultMinNapMinutes,
		TriggerWindowMinutes: DefaultTriggerWindowMinutes,
		BedtimeHour:          DefaultBedtimeHour,
		MorningHour:          DefaultMorningHour,
		AttentionMinutes:     DefaultAttentionMinutes,
		DueSoonMinutes:       DefaultDueSoonMinutes,
		JustOccurredMinutes:  DefaultJustOccurredMinutes,
		PostIncidentMinutes:  DefaultPostIncidentMinutes,
	}
}

// Input abstracts the log facts needed for one estimate.
type Input struct {
	Now time.Time
	// Last is the most recent occurrence of the target type at or before Now.
	Last  *model.Event
	Stats gaps.Stats
	// LastMeal is the most recent meal at or before Last.
	LastMeal *model.Event
	// LastSleep is the most recent completed sleep that ended at or before Last.
	LastSleep *model.SleepSession
	// LastAccident is the most recent indoor potty event at or before Now.
	LastAccident   *model.Event
	CoveragePaused bool
}

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithSettings replaces the stock settings.
func WithSettings(s Settings) Option {
	return func(e *Estimator) { e.settings = s }
}

// WithLogger sets the logger used by EstimateFromLog.
func WithLogger(l logger.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLocation sets the zone in which bedtime and morning hours are read.
func WithLocation(loc *time.Location) Option {
	return func(e *Estimator) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithTargets sets the event types whose next occurrence is predicted.
func WithTargets(types ...model.EventType) Option {
	return func(e *Estimator) {
		if len(types) > 0 {
			e.targets = append([]model.EventType(nil), types...)
		}
	}
}

// Estimator turns gap statistics and recent context into a Prediction.
type Estimator struct {
	settings Settings
	targets  []model.EventType
	loc      *time.Location
	logger   logger.Logger
}

// NewEstimator creates an Estimator with configuration options.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		settings: DefaultSettings(),
		targets:  []model.EventType{model.EventPee, model.EventPoop},
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("prediction")
	}
	return e
}

// Settings returns the settings in use.
func (e *Estimator) Settings() Settings { return e.settings }

// Targets returns the predicted event types.
func (e *Estimator) Targets() []model.EventType {
	return append([]model.EventType(nil), e.targets...)
}

// Estimate produces a Prediction. It never fails: missing history falls back
// to the default gap and a missing last occurrence yields UrgencyUnknown.
func (e *Estimator) Estimate(in Input) model.Prediction {
	s := e.settings
	p := model.Prediction{HistorySufficient: in.Stats.Sufficient}

	if in.Last == nil {
		p.Urgency = model.UrgencyUnknown
		if in.CoveragePaused {
			p.Urgency = model.UrgencyTrackingPaused
		}
		return p
	}
	p.LastOccurrenceID = in.Last.ID

	base := minutes(s.DefaultGapMinutes)
	if typical, ok := in.Stats.Typical(); ok {
		base = typical
	}
	p.BaseGap = base

	trig, multiplier := e.trigger(in)
	p.Trigger = trig

	p.GapMinutes = base.Minutes() * multiplier
	p.Gap = roundMinutes(p.GapMinutes)
	expected := in.Last.Time.Add(p.Gap)
	p.ExpectedNextTime = &expected
	p.Overnight = e.overnight(expected)

	switch {
	case in.CoveragePaused:
		p.Urgency = model.UrgencyTrackingPaused
	case e.postIncident(in):
		p.Urgency = model.UrgencyPostIncident
	default:
		p.Urgency = e.ladder(in.Now.Sub(in.Last.Time), expected.Sub(in.Now))
	}
	return p
}

func (e *Estimator) trigger(in Input) (model.Trigger, float64) {
	s := e.settings
	window := minutes(s.TriggerWindowMinutes)
	last := in.Last.Time

	var (
		trig = model.TriggerNone
		mult = 1.0
		when time.Time
	)
	if in.LastMeal != nil && within(in.LastMeal.Time, last, window) {
		trig, mult, when = model.TriggerMeal, s.PostMealMultiplier, in.LastMeal.Time
	}
	if sl := in.LastSleep; sl != nil && sl.EndTime != nil &&
		sl.EndTime.Sub(sl.StartTime) >= minutes(s.MinNapMinutes) &&
		within(*sl.EndTime, last, window) &&
		(trig == model.TriggerNone || !sl.EndTime.Before(when)) {
		trig, mult = model.TriggerSleep, s.PostSleepMultiplier
	}
	return trig, mult
}

func (e *Estimator) postIncident(in Input) bool {
	a := in.LastAccident
	if a == nil || a.Time.Before(in.Last.Time) || a.Time.After(in.Now) {
		return false
	}
	return in.Now.Sub(a.Time) <= minutes(e.settings.PostIncidentMinutes)
}

// ladder classifies elapsed time since the last occurrence against the time
// remaining until the expected one. Thresholds are inclusive.
func (e *Estimator) ladder(elapsed, remaining time.Duration) model.Urgency {
	s := e.settings
	switch {
	case elapsed < minutes(s.JustOccurredMinutes):
		return model.UrgencyJustOccurred
	case remaining <= 0:
		return model.UrgencyOverdue
	case remaining <= minutes(s.DueSoonMinutes):
		return model.UrgencyDueSoon
	case remaining <= minutes(s.AttentionMinutes):
		return model.UrgencyAttention
	default:
		return model.UrgencyNormal
	}
}

func (e *Estimator) overnight(t time.Time) bool {
	bed, morning := e.settings.BedtimeHour, e.settings.MorningHour
	h := t.In(e.loc).Hour()
	if bed == morning {
		return false
	}
	if bed < morning {
		return h >= bed && h < morning
	}
	return h >= bed || h < morning
}

// EstimateFromLog derives the Input from a log snapshot and estimates the next
// target occurrence as of now.
func (e *Estimator) EstimateFromLog(
	ctx context.Context,
	events []model.Event,
	coverage []model.CoverageGap,
	now time.Time,
	analyzer *gaps.Analyzer,
) model.Prediction {
	in := e.Input(events, coverage, now, analyzer)
	p := e.Estimate(in)

	var untilMinutes float64
	if p.ExpectedNextTime != nil {
		untilMinutes = p.ExpectedNextTime.Sub(now).Minutes()
	}
	metrics.RecordPrediction(p.Urgency.String(), p.Urgency.Rank())
	metrics.UpdateMinutesUntilExpected(untilMinutes)

	fields := []logger.Field{
		logger.String("urgency", p.Urgency.String()),
		logger.String("trigger", p.Trigger.String()),
		logger.Duration("gap", p.Gap),
		logger.Bool("history_sufficient", p.HistorySufficient),
	}
	if p.ExpectedNextTime != nil {
		fields = append(fields, logger.Time("expected", *p.ExpectedNextTime))
	}
	e.logger.Debug(ctx, "prediction estimated", fields...)
	return p
}

// Input collects the facts Estimate needs from a snapshot.
func (e *Estimator) Input(
	events []model.Event,
	coverage []model.CoverageGap,
	now time.Time,
	analyzer *gaps.Analyzer,
) Input {
	if analyzer == nil {
		analyzer = gaps.NewAnalyzer()
	}
	in := Input{
		Now:   now,
		Stats: analyzer.Analyze(events, now, e.targets...),
	}
	for _, g := range coverage {
		if g.ActiveAt(now) {
			in.CoveragePaused = true
			break
		}
	}

	target := make(map[model.EventType]struct{}, len(e.targets))
	for _, t := range e.targets {
		target[t] = struct{}{}
	}
	for i := range events {
		ev := events[i]
		if ev.Time.After(now) {
			continue
		}
		if _, ok := target[ev.Type]; ok && (in.Last == nil || in.Last.Before(ev)) {
			in.Last = &ev
		}
		if ev.IsAccident() && (in.LastAccident == nil || in.LastAccident.Before(ev)) {
			in.LastAccident = &ev
		}
	}
	if in.Last == nil {
		return in
	}

	for i := range events {
		ev := events[i]
		if ev.Type.IsMeal() && !ev.Time.After(in.Last.Time) &&
			(in.LastMeal == nil || in.LastMeal.Before(ev)) {
			in.LastMeal = &ev
		}
	}
	for _, s := range sessions.SleepSessions(events) {
		if s.EndTime == nil || s.EndTime.After(in.Last.Time) {
			continue
		}
		if in.LastSleep == nil || in.LastSleep.EndTime.Before(*s.EndTime) {
			sl := s
			in.LastSleep = &sl
		}
	}
	return in
}

func within(t, ref time.Time, window time.Duration) bool {
	return !t.After(ref) && ref.Sub(t) <= window
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// roundMinutes rounds half up to whole minutes with a one-minute floor.
func roundMinutes(m float64) time.Duration {
	r := math.Floor(m + 0.5)
	if math.IsNaN(r) || r < 1 {
		r = 1
	}
	return time.Duration(r) * time.Minute
}
