package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/pupcare/internal/config"
	"github.com/okian/pupcare/internal/domain/prediction"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.EvaluationInterval(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the estimator settings match the stock settings", func() {
			convey.So(cfg.Estimator.Settings(), convey.ShouldResemble, prediction.DefaultSettings())
			convey.So(cfg.Estimator.GapStatistic, convey.ShouldEqual, "median")
			opts, err := cfg.Estimator.AnalyzerOptions()
			convey.So(err, convey.ShouldBeNil)
			convey.So(opts, convey.ShouldHaveLength, 3)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the thresholds are inverted", func() {
			cfg.Estimator.AttentionMinutes = 5
			cfg.Estimator.DueSoonMinutes = 10

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "due_soon_minutes")
			})
		})

		convey.Convey("When the bedtime hour is out of range", func() {
			cfg.Estimator.BedtimeHour = 24

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the statistic is unknown", func() {
			cfg.Estimator.GapStatistic = "mode"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "gap_statistic")
			})
		})

		convey.Convey("When a multiplier would lengthen the gap", func() {
			cfg.Estimator.PostMealMultiplier = 1.2

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "multipliers")
			})
		})

		convey.Convey("When a multiplier is exactly one", func() {
			cfg.Estimator.PostSleepMultiplier = 1

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the dedupe size is zero", func() {
			cfg.DedupeSize = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "dedupe_size")
			})
		})

		convey.Convey("When the store is unknown", func() {
			cfg.Store = "postgres"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "store must be")
			})
		})

		convey.Convey("When the timezone is a valid zone", func() {
			cfg.Estimator.Timezone = "UTC"

			convey.Convey("Then it resolves", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				loc, err := cfg.Estimator.Location()
				convey.So(err, convey.ShouldBeNil)
				convey.So(loc, convey.ShouldEqual, time.UTC)
			})
		})
	})
}
