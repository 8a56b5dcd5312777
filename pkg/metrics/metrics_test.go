package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the default refresh interval", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.Enabled(), ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"puppy": "biscuit"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				So(manager.Enabled(), ShouldBeFalse)

				manager.eventsLogged.WithLabelValues("pee").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_events_logged_total" {
						found = true
						So(f.GetMetric()[0].GetLabel(), ShouldNotBeEmpty)
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When logging events of a type", func() {
			before := testutil.ToFloat64(globalManager.eventsLogged.WithLabelValues("poop"))
			RecordEventLogged("poop")
			RecordEventLogged("poop")

			Convey("Then the per-type counter should increase", func() {
				after := testutil.ToFloat64(globalManager.eventsLogged.WithLabelValues("poop"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When a reconstruction finishes", func() {
			UpdateSessionCounts(4, 1, 2)

			Convey("Then the session gauges should reflect it", func() {
				So(testutil.ToFloat64(globalManager.sleepSessions), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.ongoingSleepSessions), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.walkSessions), ShouldEqual, 2)
			})
		})

		Convey("When a prediction is recorded", func() {
			RecordPrediction("due_soon", 3)
			UpdateMinutesUntilExpected(7.5)

			Convey("Then the urgency gauges should reflect it", func() {
				So(testutil.ToFloat64(globalManager.currentUrgencyRank), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.minutesUntilExpected), ShouldEqual, 7.5)
			})
		})

		Convey("When recording the remaining helpers", func() {
			Convey("Then none of them should panic", func() {
				So(func() {
					RecordEventReplaced()
					RecordEventDeleted()
					RecordEventDuplicate()
					UpdateEventsTotal(12)
					UpdateCoverageGaps(1)
					RecordReconstructionLatency(0.4)
					RecordUrgencyTransition("normal", "attention")
					RecordRepositoryWriteLatency(1)
					RecordRepositoryReadLatency(2)
					RecordHTTPRequest("/events", "POST", "201")
					RecordHTTPRequestDuration("/events", "POST", "201", 3)
					UpdateQueueSize(1)
					UpdateQueueCapacity(16)
					UpdateQueueUtilization(0.0625)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueRejected("full")
					UpdateWorkerActiveCount(1)
					RecordWorkerProcessingLatency(4)
					RecordWorkerError()
					RecordErrorByComponent("repository", "not_found")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
			})
		})

		Convey("Then the custom registry should be exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
