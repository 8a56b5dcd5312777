package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/pupcare/internal/adapters/repository"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var noon = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func stamp(offset time.Duration) string { return noon.Add(offset).Format(time.RFC3339) }

// run executes pupctl against db and returns stdout.
func run(db string, args ...string) (string, error) {
	var out bytes.Buffer
	err := Execute(context.Background(), append([]string{"--db", db}, args...), &out, io.Discard)
	return out.String(), err
}

func decodeOut[T any](raw string) T {
	var v T
	So(json.Unmarshal([]byte(raw), &v), ShouldBeNil)
	return v
}

func TestEventCommands(t *testing.T) {
	t.Setenv("PUPCARE_ESTIMATOR__TIMEZONE", "UTC")
	t.Setenv("PUPCARE_ESTIMATOR__DEFAULT_GAP_MINUTES", "60")

	Convey("Given an empty log", t, func() {
		db := filepath.Join(t.TempDir(), "pupcare.db")

		Convey("When a pee is logged with an explicit ID", func() {
			out, err := run(db, "log", "pee", "--id", "p1", "--at", stamp(0), "-l", "outdoor", "-n", "garden")
			So(err, ShouldBeNil)

			Convey("Then the stored event is printed", func() {
				v := decodeOut[types.EventView](out)
				So(v.ID, ShouldEqual, "p1")
				So(v.Type, ShouldEqual, "pee")
				So(v.Location, ShouldEqual, "outdoor")
				So(v.Time.Equal(noon), ShouldBeTrue)
			})

			Convey("And logging the same ID again fails", func() {
				_, err := run(db, "log", "pee", "--id", "p1", "--at", stamp(time.Minute))
				So(errors.Is(err, repository.ErrDuplicate), ShouldBeTrue)
			})

			Convey("And the prediction uses the configured default gap", func() {
				out, err := run(db, "predict", "--at", stamp(20*time.Minute))
				So(err, ShouldBeNil)
				p := decodeOut[types.PredictionView](out)
				So(p.ExpectedNextTime.Equal(noon.Add(time.Hour)), ShouldBeTrue)
				So(p.LastOccurrenceID, ShouldEqual, "p1")
				So(p.HistorySufficient, ShouldBeFalse)
			})

			Convey("And edit changes only the given fields", func() {
				out, err := run(db, "edit", "p1", "-l", "indoor")
				So(err, ShouldBeNil)
				v := decodeOut[types.EventView](out)
				So(v.Location, ShouldEqual, "indoor")
				So(v.Note, ShouldEqual, "garden")

				out, err = run(db, "show", "p1")
				So(err, ShouldBeNil)
				So(decodeOut[types.EventView](out).Location, ShouldEqual, "indoor")
			})

			Convey("And rm deletes it", func() {
				out, err := run(db, "rm", "p1")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "deleted p1\n")

				_, err = run(db, "show", "p1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When events of several types are logged", func() {
			for _, args := range [][]string{
				{"log", "feed", "--at", stamp(-time.Hour)},
				{"log", "pee", "--at", stamp(-30 * time.Minute)},
				{"log", "poop", "--at", stamp(-30 * time.Minute)},
				{"log", "weight", "--at", stamp(0), "--value", "4.2"},
			} {
				_, err := run(db, args...)
				So(err, ShouldBeNil)
			}

			Convey("Then events can be filtered by type and time", func() {
				out, err := run(db, "events", "-t", "pee", "-t", "poop")
				So(err, ShouldBeNil)
				So(decodeOut[[]types.EventView](out), ShouldHaveLength, 2)

				out, err = run(db, "events", "--since", stamp(-45*time.Minute))
				So(err, ShouldBeNil)
				vs := decodeOut[[]types.EventView](out)
				So(vs, ShouldHaveLength, 3)
				So(*vs[2].Value, ShouldEqual, 4.2)
			})
		})

		Convey("When the input is invalid", func() {
			_, err := run(db, "log", "zoomies")
			So(errors.Is(err, model.ErrUnknownEventType), ShouldBeTrue)

			_, err = run(db, "log", "pee", "--at", "noon")
			So(err, ShouldNotBeNil)

			_, err = run(db, "log", "pee", "-l", "roof")
			So(errors.Is(err, model.ErrUnknownLocation), ShouldBeTrue)
		})
	})
}

func TestSessionCommands(t *testing.T) {
	Convey("Given a nap, a walk and a night sleep", t, func() {
		db := filepath.Join(t.TempDir(), "pupcare.db")
		for _, args := range [][]string{
			{"log", "sleep", "--id", "s1", "--at", stamp(-3 * time.Hour)},
			{"log", "wake", "--id", "w1", "--at", stamp(-2 * time.Hour)},
			{"log", "walk", "--id", "walk", "--at", stamp(-time.Hour), "--duration", "30m"},
			{"log", "pee", "--at", stamp(-50 * time.Minute), "--parent", "walk", "-l", "outdoor"},
			{"log", "sleep", "--id", "s2", "--at", stamp(-10 * time.Minute)},
		} {
			_, err := run(db, args...)
			So(err, ShouldBeNil)
		}

		Convey("Then the nap is closed by its wake and the last sleep is ongoing", func() {
			out, err := run(db, "sessions", "sleep")
			So(err, ShouldBeNil)
			ss := decodeOut[[]types.SleepSessionView](out)
			So(ss, ShouldHaveLength, 2)
			So(ss[0].StartEventID, ShouldEqual, "s1")
			So(ss[0].EndEventID, ShouldEqual, "w1")
			So(ss[0].DurationMinutes, ShouldEqual, 60.0)
			So(ss[1].Ongoing, ShouldBeTrue)

			out, err = run(db, "sessions", "ongoing")
			So(err, ShouldBeNil)
			o := decodeOut[ongoingView](out)
			So(o.Ongoing, ShouldBeTrue)
			So(o.Session.StartEventID, ShouldEqual, "s2")
		})

		Convey("And the walk owns the pee logged during it", func() {
			out, err := run(db, "sessions", "walks")
			So(err, ShouldBeNil)
			ws := decodeOut[[]types.WalkSessionView](out)
			So(ws, ShouldHaveLength, 1)
			So(ws[0].HadPee, ShouldBeTrue)
			So(ws[0].HadPoop, ShouldBeFalse)
		})
	})
}

func TestCoverageCommands(t *testing.T) {
	Convey("Given a logged pee", t, func() {
		db := filepath.Join(t.TempDir(), "pupcare.db")
		_, err := run(db, "log", "pee", "--at", stamp(-time.Hour))
		So(err, ShouldBeNil)

		Convey("When a coverage gap starts", func() {
			out, err := run(db, "coverage", "start", "--at", stamp(-30*time.Minute), "-r", "daycare")
			So(err, ShouldBeNil)
			g := decodeOut[types.CoverageGapView](out)
			So(g.Reason, ShouldEqual, "daycare")

			Convey("Then predictions are paused while it is open", func() {
				out, err := run(db, "predict", "--at", stamp(0))
				So(err, ShouldBeNil)
				So(decodeOut[types.PredictionView](out).Urgency, ShouldEqual, "tracking_paused")
			})

			Convey("And once ended it cannot be ended again", func() {
				_, err := run(db, "coverage", "end", g.ID, "--at", stamp(-10*time.Minute))
				So(err, ShouldBeNil)
				_, err = run(db, "coverage", "end", g.ID, "--at", stamp(0))
				So(errors.Is(err, repository.ErrCoverageClosed), ShouldBeTrue)

				out, err := run(db, "coverage", "list")
				So(err, ShouldBeNil)
				gs := decodeOut[[]types.CoverageGapView](out)
				So(gs, ShouldHaveLength, 1)
				So(gs[0].End, ShouldNotBeNil)
			})
		})
	})
}

func TestSeedCommand(t *testing.T) {
	Convey("Given an empty log", t, func() {
		db := filepath.Join(t.TempDir(), "pupcare.db")

		Convey("When three days are seeded", func() {
			out, err := run(db, "seed", "--start", "2026-06-01", "--days", "3", "--accident-rate", "0")
			So(err, ShouldBeNil)
			So(out, ShouldStartWith, "appended ")
			So(out, ShouldEndWith, "skipped 0 already present\n")

			Convey("Then seeding again adds nothing", func() {
				out, err := run(db, "seed", "--start", "2026-06-01", "--days", "3", "--accident-rate", "0")
				So(err, ShouldBeNil)
				So(out, ShouldStartWith, "appended 0 events")
			})

			Convey("And the summary sees the reconstructed days", func() {
				out, err := run(db, "summary", "--at", "2026-06-03T23:00:00Z")
				So(err, ShouldBeNil)
				sum := decodeOut[types.SummaryView](out)
				So(sum.Walks, ShouldHaveLength, 6)
				So(sum.Ongoing, ShouldNotBeNil)
				So(sum.Prediction.HistorySufficient, ShouldBeTrue)
			})

			Convey("And gap history is reported", func() {
				out, err := run(db, "gaps", "--at", "2026-06-03T23:00:00Z")
				So(err, ShouldBeNil)
				st := decodeOut[types.GapStatsView](out)
				So(st.Sufficient, ShouldBeTrue)
				So(st.MedianMinutes, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the seed settings are invalid", func() {
			_, err := run(db, "seed", "--days", "0")
			So(err, ShouldNotBeNil)
		})
	})
}
