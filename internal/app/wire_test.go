package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/pupcare/internal/adapters/repository"
	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/config"
	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpenStore(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := config.New(context.Background())

		Convey("Then the memory store is used", func() {
			store, err := service.OpenStore(cfg)
			So(err, ShouldBeNil)
			_, ok := store.(*repository.MemoryStore)
			So(ok, ShouldBeTrue)
			So(store.Close(), ShouldBeNil)
		})

		Convey("When sqlite is selected", func() {
			cfg.Store = config.StoreSQLite
			cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "pupcare.db")

			Convey("Then the file and its directory are created", func() {
				store, err := service.OpenStore(cfg)
				So(err, ShouldBeNil)
				_, ok := store.(*repository.SQLiteStore)
				So(ok, ShouldBeTrue)
				So(store.Close(), ShouldBeNil)
				_, err = os.Stat(cfg.SQLitePath)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestNewFromConfig(t *testing.T) {
	Convey("Given estimator settings in the configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.Estimator.Timezone = "UTC"
		cfg.Estimator.DefaultGapMinutes = 60
		cfg.Estimator.GapStatistic = "mean"

		svc, err := service.NewFromConfig(cfg, service.WithClock(func() time.Time { return now }))
		So(err, ShouldBeNil)
		_, _, err = svc.LogEvent(ctx, model.Event{Type: model.EventPee, Time: ago(10)}, "")
		So(err, ShouldBeNil)

		Convey("Then the estimator uses the configured default gap", func() {
			p, err := svc.Predict(ctx, now)
			So(err, ShouldBeNil)
			So(p.HistorySufficient, ShouldBeFalse)
			So(*p.ExpectedNextTime, ShouldEqual, ago(10).Add(time.Hour))
		})

		Convey("And the analyzer uses the configured statistic", func() {
			st, err := svc.GapStats(ctx, now)
			So(err, ShouldBeNil)
			So(st.Statistic, ShouldEqual, gaps.Mean)
		})
	})

	Convey("Given an unknown timezone", t, func() {
		cfg := config.New(context.Background())
		cfg.Estimator.Timezone = "Nowhere/Special"

		Convey("Then no service is built", func() {
			svc, err := service.NewFromConfig(cfg)
			So(err, ShouldNotBeNil)
			So(svc, ShouldBeNil)
		})
	})
}

func TestStopWithoutStart(t *testing.T) {
	Convey("Given a sqlite service that was never started", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.Store = config.StoreSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "pupcare.db")

		svc, err := service.NewFromConfig(cfg)
		So(err, ShouldBeNil)

		Convey("When it is stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the store is closed", func() {
				_, _, err := svc.LogEvent(ctx, model.Event{Type: model.EventPee}, "")
				So(err, ShouldNotBeNil)
			})
		})
	})
}
