// Package gaps characterises the historical rhythm of a recurring event type.
package gaps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/pupcare/internal/domain/model"
)

// Statistic selects the central tendency reported as the typical gap.
type Statistic uint8

// Supported statistics.
const (
	Median Statistic = iota
	Mean
)

// String returns the configuration name of the statistic.
func (s Statistic) String() string {
	if s == Mean {
		return "mean"
	}
	return "median"
}

// ParseStatistic converts a configuration name into a Statistic.
func ParseStatistic(s string) (Statistic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "median":
		return Median, nil
	case "mean", "average":
		return Mean, nil
	default:
		return Median, fmt.Errorf("%w: %q", ErrUnknownStatistic, s)
	}
}

// Stats summarises the gaps between consecutive occurrences.
//
// When Sufficient is false the Median and Mean fields are meaningless and
// Typical reports no value; callers must not read that as a zero gap.
type Stats struct {
	Occurrences int
	Gaps        []time.Duration
	Median      time.Duration
	Mean        time.Duration
	Statistic   Statistic
	Sufficient  bool
}

// Typical returns the gap selected by Statistic, or false when there is not
// enough history.
func (s Stats) Typical() (time.Duration, bool) {
	if !s.Sufficient {
		return 0, false
	}
	if s.Statistic == Mean {
		return s.Mean, true
	}
	return s.Median, true
}

// History returns the gaps between consecutive occurrences of any of the
// given types, in chronological order.
func History(events []model.Event, types ...model.EventType) []time.Duration {
	return gapsBetween(occurrences(events, types))
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithStatistic selects the typical-gap statistic.
func WithStatistic(s Statistic) Option {
	return func(a *Analyzer) { a.statistic = s }
}

// WithLookback ignores occurrences older than d before the analysis time.
// Zero or negative keeps the full history.
func WithLookback(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.lookback = d
		}
	}
}

// WithMaxGap drops gaps longer than d, such as the overnight stretch.
// Zero or negative keeps every gap.
func WithMaxGap(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.maxGap = d
		}
	}
}

// Analyzer computes Stats for an event type. It is immutable after
// construction and safe for concurrent use.
type Analyzer struct {
	statistic Statistic
	lookback  time.Duration
	maxGap    time.Duration
}

// NewAnalyzer creates an Analyzer with configuration options.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{statistic: Median}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes the gap statistics for the given types as of now.
// Occurrences after now are ignored.
func (a *Analyzer) Analyze(events []model.Event, now time.Time, types ...model.EventType) Stats {
	occ := occurrences(events, types)

	filtered := occ[:0]
	for _, t := range occ {
		if t.After(now) {
			continue
		}
		if a.lookback > 0 && t.Before(now.Add(-a.lookback)) {
			continue
		}
		filtered = append(filtered, t)
	}

	all := gapsBetween(filtered)
	kept := make([]time.Duration, 0, len(all))
	for _, g := range all {
		// A pee and a poop logged together are one outing, not a zero gap.
		if g <= 0 || (a.maxGap > 0 && g > a.maxGap) {
			continue
		}
		kept = append(kept, g)
	}

	st := Stats{
		Occurrences: len(filtered),
		Gaps:        kept,
		Statistic:   a.statistic,
	}
	if len(filtered) < 2 || len(kept) == 0 {
		return st
	}
	st.Sufficient = true
	st.Median = median(kept)
	st.Mean = mean(kept)
	return st
}

func occurrences(events []model.Event, types []model.EventType) []time.Time {
	want := make(map[model.EventType]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}

	var out []time.Time
	for _, e := range events {
		if _, ok := want[e.Type]; ok {
			out = append(out, e.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func gapsBetween(times []time.Time) []time.Duration {
	if len(times) < 2 {
		return []time.Duration{}
	}
	out := make([]time.Duration, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		out = append(out, times[i].Sub(times[i-1]))
	}
	return out
}

func median(ds []time.Duration) time.Duration {
	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(ds []time.Duration) time.Duration {
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}
