package seed_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/okian/pupcare/internal/adapters/repository"
	"github.com/okian/pupcare/internal/domain/sessions"
	"github.com/okian/pupcare/internal/seed"
	"github.com/okian/pupcare/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func config(days int) seed.Config {
	return seed.Config{
		Start:        time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC),
		Days:         days,
		Seed:         42,
		GapMinutes:   seed.DefaultGapMinutes,
		AccidentRate: 0,
		Workers:      2,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a three day seed", t, func() {
		ctx := context.Background()
		events, err := seed.Generate(ctx, config(3))
		So(err, ShouldBeNil)

		Convey("Then the log is ordered and reproducible", func() {
			for i := 1; i < len(events); i++ {
				So(events[i-1].Before(events[i]), ShouldBeTrue)
			}
			again, err := seed.Generate(ctx, config(3))
			So(err, ShouldBeNil)
			So(again, ShouldResemble, events)
		})

		Convey("Then every night but the last is closed", func() {
			sleep := sessions.SleepSessions(events)
			So(sleep, ShouldHaveLength, 9)
			sum := sessions.SleepStats(sleep, events[len(events)-1].Time)
			So(sum.Completed, ShouldEqual, 8)
			So(sum.Ongoing, ShouldEqual, 1)

			ongoing, ok := sessions.OngoingSleep(events)
			So(ok, ShouldBeTrue)
			So(ongoing.StartTime, ShouldEqual, time.Date(2026, 6, 3, 22, 30, 0, 0, time.UTC))
		})

		Convey("Then walks contain their potty events", func() {
			walks := sessions.WalkSessions(events)
			So(walks, ShouldHaveLength, 6)
			for _, w := range walks {
				So(w.HadPee(), ShouldBeTrue)
			}
			So(walks[0].HadPoop(), ShouldBeTrue)
		})

		Convey("Then no accidents are generated at a zero rate", func() {
			for _, e := range events {
				So(e.IsAccident(), ShouldBeFalse)
			}
		})
	})

	Convey("Given an accident rate of one", t, func() {
		cfg := config(1)
		cfg.AccidentRate = 1
		events, err := seed.Generate(context.Background(), cfg)
		So(err, ShouldBeNil)

		Convey("Then every standalone pee is indoors", func() {
			standalone := sessions.Standalone(events)
			So(standalone, ShouldNotBeEmpty)
			for _, e := range standalone {
				So(e.IsAccident(), ShouldBeTrue)
			}
		})
	})

	Convey("Given invalid settings", t, func() {
		cfg := config(0)

		Convey("Then generation fails", func() {
			_, err := seed.Generate(context.Background(), cfg)
			So(errors.Is(err, seed.ErrInvalidConfig), ShouldBeTrue)

			cfg = config(1)
			cfg.GapMinutes = 10
			_, err = seed.Generate(context.Background(), cfg)
			So(errors.Is(err, seed.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a generated day and an empty store", t, func() {
		ctx := context.Background()
		events, err := seed.Generate(ctx, config(1))
		So(err, ShouldBeNil)
		store := repository.NewMemoryStore()

		Convey("When loading it twice", func() {
			first, err := seed.Load(ctx, store, events, repository.ErrDuplicate)
			So(err, ShouldBeNil)
			second, err := seed.Load(ctx, store, events, repository.ErrDuplicate)
			So(err, ShouldBeNil)

			Convey("Then the second load skips every event", func() {
				So(first.Appended, ShouldEqual, len(events))
				So(second.Appended, ShouldEqual, 0)
				So(second.Skipped, ShouldEqual, len(events))
				So(store.Count(ctx), ShouldEqual, len(events))
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := seed.Load(cctx, store, events, repository.ErrDuplicate)

			Convey("Then loading stops", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
