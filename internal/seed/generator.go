// Package seed generates deterministic synthetic caregiving days for demos,
// load checks and integration tests.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/pkg/logger"
)

// Default generator settings.
const (
	DefaultDays         = 7
	DefaultGapMinutes   = 120
	DefaultAccidentRate = 0.1
	DefaultWorkers      = 4

	jitterMinutes = 15
	dayStartHour  = 6
	dayStartMin   = 30
	bedtimeHour   = 22
	bedtimeMin    = 30
)

// Config controls the generated log.
type Config struct {
	// Start is truncated to midnight in its location; the first day begins there.
	Start time.Time
	Days  int
	// Seed makes output reproducible: equal configs yield equal logs.
	Seed int64
	// GapMinutes is the typical spacing between pees while awake.
	GapMinutes int
	// AccidentRate is the share of standalone pees logged indoors.
	AccidentRate float64
	Workers      int
}

// DefaultConfig returns a week starting today with the stock settings.
func DefaultConfig() Config {
	return Config{
		Start:        time.Now(),
		Days:         DefaultDays,
		Seed:         1,
		GapMinutes:   DefaultGapMinutes,
		AccidentRate: DefaultAccidentRate,
		Workers:      DefaultWorkers,
	}
}

// Generate builds the event log for cfg, sorted by time then ID. Days are
// generated concurrently, each from its own seeded source.
func Generate(ctx context.Context, cfg Config) ([]model.Event, error) {
	if cfg.Days < 1 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidConfig, cfg.Days)
	}
	if cfg.GapMinutes < jitterMinutes*2 {
		return nil, fmt.Errorf("%w: gap_minutes must be at least %d, got %d", ErrInvalidConfig, jitterMinutes*2, cfg.GapMinutes)
	}
	if cfg.AccidentRate < 0 || cfg.AccidentRate > 1 {
		return nil, fmt.Errorf("%w: accident_rate must be within [0,1], got %v", ErrInvalidConfig, cfg.AccidentRate)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	y, m, d := cfg.Start.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, cfg.Start.Location())

	days := make([][]model.Event, cfg.Days)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range days {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("context cancelled during generation: %w", err)
			}
			gen := newDay(cfg, i, midnight.AddDate(0, 0, i))
			days[i] = gen.build()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Event
	for _, day := range days {
		out = append(out, day...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	logger.Get().Debug(ctx, "generated caregiving log",
		logger.Int("days", cfg.Days),
		logger.Int("events", len(out)),
	)
	return out, nil
}

// day generates one day: the wake closing last night's sleep, meals, naps,
// walks with their potty events and standalone pees in between.
type day struct {
	cfg     Config
	index   int
	date    time.Time
	rng     *rand.Rand
	events  []model.Event
	asleep  []window
	walking []window
}

type window struct{ from, to time.Time }

func newDay(cfg Config, index int, date time.Time) *day {
	return &day{
		cfg:   cfg,
		index: index,
		date:  date,
		rng:   rand.New(rand.NewSource(cfg.Seed*1_000_003 + int64(index))), //nolint:gosec // reproducible demo data
	}
}

func (d *day) at(hour, minute int) time.Time {
	return d.date.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func (d *day) jitter(t time.Time) time.Time {
	return t.Add(time.Duration(d.rng.Intn(2*jitterMinutes+1)-jitterMinutes) * time.Minute)
}

func (d *day) add(t time.Time, typ model.EventType, mutate func(*model.Event)) model.Event {
	e := model.Event{
		ID:   ulid.MustNew(ulid.Timestamp(t), d.rng).String(),
		Time: t,
		Type: typ,
	}
	if mutate != nil {
		mutate(&e)
	}
	d.events = append(d.events, e)
	return e
}

// link derives a stable session link for the named sleep of day index.
func (d *day) link(index int, name string) string {
	key := fmt.Sprintf("%d/%d/%s", d.cfg.Seed, index, name)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func (d *day) sleep(name string, from, to time.Time, closed bool) {
	id := d.link(d.index, name)
	d.add(from, model.EventSleep, func(e *model.Event) { e.SessionLinkID = id })
	if closed {
		d.add(to, model.EventWake, func(e *model.Event) { e.SessionLinkID = id })
	}
	d.asleep = append(d.asleep, window{from, to})
}

func (d *day) walk(start time.Time, minutes int, poop bool) {
	dur := time.Duration(minutes) * time.Minute
	w := d.add(start, model.EventWalk, func(e *model.Event) { e.Duration = dur })
	child := func(e *model.Event) {
		e.ParentID = w.ID
		e.Location = model.LocationOutdoor
	}
	d.add(start.Add(5*time.Minute), model.EventPee, child)
	if poop {
		d.add(start.Add(12*time.Minute), model.EventPoop, child)
	}
	d.walking = append(d.walking, window{start, start.Add(dur)})
}

func (d *day) busy(t time.Time) bool {
	for _, ws := range [][]window{d.asleep, d.walking} {
		for _, w := range ws {
			if !t.Before(w.from) && t.Before(w.to) {
				return true
			}
		}
	}
	return false
}

func (d *day) build() []model.Event {
	wake := d.at(dayStartHour, dayStartMin)
	if d.index > 0 {
		// Closes the night sleep opened by the previous day.
		link := d.link(d.index-1, "night")
		d.add(wake, model.EventWake, func(e *model.Event) { e.SessionLinkID = link })
	}

	for _, meal := range [][2]int{{7, 0}, {12, 0}, {17, 30}} {
		t := d.jitter(d.at(meal[0], meal[1]))
		d.add(t, model.EventFeed, nil)
		d.add(t.Add(5*time.Minute), model.EventDrink, nil)
	}

	nap1 := d.jitter(d.at(9, 30))
	d.sleep("nap1", nap1, nap1.Add(time.Duration(60+d.rng.Intn(31))*time.Minute), true)
	nap2 := d.jitter(d.at(14, 0))
	d.sleep("nap2", nap2, nap2.Add(time.Duration(60+d.rng.Intn(61))*time.Minute), true)

	d.walk(d.jitter(d.at(8, 0)), 30, true)
	d.walk(d.jitter(d.at(18, 30)), 25, d.rng.Intn(2) == 0)

	bed := d.at(bedtimeHour, bedtimeMin)
	gap := time.Duration(d.cfg.GapMinutes) * time.Minute
	for t := wake.Add(5 * time.Minute); t.Before(bed); t = d.jitter(t.Add(gap)) {
		if d.busy(t) {
			continue
		}
		loc := model.LocationOutdoor
		if d.rng.Float64() < d.cfg.AccidentRate {
			loc = model.LocationIndoor
		}
		d.add(t, model.EventPee, func(e *model.Event) { e.Location = loc })
	}

	if d.index%3 == 0 {
		weight := 4.2 + 0.05*float64(d.index)
		d.add(d.at(19, 0), model.EventWeight, func(e *model.Event) { e.Value = &weight })
	}

	// The next day's first wake closes the night; the last night stays open.
	d.sleep("night", bed, bed, false)
	return d.events
}
