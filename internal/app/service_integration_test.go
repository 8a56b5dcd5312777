package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/pupcare/internal/adapters/repository"
	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/prediction"
	"github.com/okian/pupcare/internal/seed"
	. "github.com/smartystreets/goconvey/convey"
)

func seededStore(t *testing.T, path string, days int) (*repository.SQLiteStore, []model.Event) {
	t.Helper()
	ctx := context.Background()
	store, err := repository.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := seed.DefaultConfig()
	cfg.Start = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg.Days = days
	events, err := seed.Generate(ctx, cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := seed.Load(ctx, store, events, repository.ErrDuplicate); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store, events
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over a seeded sqlite log", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		path := filepath.Join(t.TempDir(), "pupcare.db")
		store, events := seededStore(t, path, 3)
		at := events[len(events)-1].Time.Add(30 * time.Minute)

		notes := &recordingNotifier{}
		svc := service.New(
			service.WithStore(store),
			service.WithClock(func() time.Time { return at }),
			service.WithEstimator(prediction.NewEstimator(prediction.WithLocation(time.UTC))),
			service.WithNotifier(notes),
			service.WithEvaluationInterval(0),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When summarising the log", func() {
			sum, err := svc.Summary(ctx, at)

			Convey("Then the seeded routine is reconstructed", func() {
				So(err, ShouldBeNil)
				So(sum.Events, ShouldEqual, len(events))
				So(sum.Sleep, ShouldHaveLength, 9)
				So(sum.Walks, ShouldHaveLength, 6)
				So(sum.Ongoing, ShouldNotBeNil)
				So(sum.SleepStats.Completed, ShouldEqual, 8)
			})

			Convey("And the prediction uses the learned rhythm", func() {
				p := sum.Prediction
				So(p.HistorySufficient, ShouldBeTrue)
				So(p.ExpectedNextTime, ShouldNotBeNil)
				So(p.Urgency.IsOverride(), ShouldBeFalse)
			})
		})

		Convey("When the puppy wakes and pees during the night", func() {
			wake, _, err := svc.LogEvent(ctx, model.Event{Type: model.EventWake}, "wake-1")
			So(err, ShouldBeNil)
			_, _, err = svc.LogEvent(ctx, model.Event{
				Type:     model.EventPee,
				Location: model.LocationIndoor,
			}, "pee-1")
			So(err, ShouldBeNil)

			Convey("Then the wake closes the open night", func() {
				_, ok, err := svc.OngoingSleep(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(wake.SessionLinkID, ShouldNotBeEmpty)
			})

			Convey("And the accident is reported by the monitor", func() {
				So(waitFor(func() bool {
					tr, ok := notes.last()
					return ok && tr.To == model.UrgencyPostIncident
				}), ShouldBeTrue)
			})
		})

		Convey("When the store is reopened", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			reopened, err := repository.NewSQLiteStore(path)
			So(err, ShouldBeNil)
			defer reopened.Close()

			Convey("Then the seeded events persisted", func() {
				So(reopened.Count(ctx), ShouldEqual, len(events))
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a service receiving concurrent requests", t, func() {
		ctx := context.Background()
		svc := newService(service.WithDedupeSize(1000))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		const (
			clients  = 20
			attempts = 5
		)

		Convey("When every client retries its request several times", func() {
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				ids  = make(map[string]map[string]struct{})
				errs []error
			)
			for c := 0; c < clients; c++ {
				key := fmt.Sprintf("client-%d", c)
				for a := 0; a < attempts; a++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						e, _, err := svc.LogEvent(ctx, model.Event{Type: model.EventPee, Time: ago(c)}, key)
						mu.Lock()
						defer mu.Unlock()
						if err != nil {
							errs = append(errs, err)
							return
						}
						if ids[key] == nil {
							ids[key] = make(map[string]struct{})
						}
						ids[key][e.ID] = struct{}{}
					}()
				}
			}
			wg.Wait()

			Convey("Then each request is stored exactly once", func() {
				So(errs, ShouldBeEmpty)
				So(svc.GetStats()["totalEvents"], ShouldEqual, clients)
				for _, seen := range ids {
					So(seen, ShouldHaveLength, 1)
				}
			})
		})
	})
}
