package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/pupcare/internal/adapters/http/api"
	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/prediction"
	"github.com/okian/pupcare/internal/domain/types"
	"github.com/okian/pupcare/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func ago(minutes int) time.Time { return now.Add(-time.Duration(minutes) * time.Minute) }

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

// failingDeps makes every read fail with a storage error.
type failingDeps struct {
	*service.Service
}

func (failingDeps) SleepSessions(context.Context) ([]model.SleepSession, error) {
	return nil, errors.New("disk on fire")
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}).
		Register(context.Background(), mux)
	return mux
}

func newService() *service.Service {
	return service.New(
		service.WithClock(func() time.Time { return now }),
		service.WithEstimator(prediction.NewEstimator(prediction.WithLocation(time.UTC))),
	)
}

func do(mux http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newService())

		Convey("Then health endpoint should be accessible", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("And stats endpoint should be accessible", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["started"], ShouldEqual, true)
		})

		Convey("And metrics endpoint should expose the registry", func() {
			_ = do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("And unknown methods are rejected by the router", func() {
			w := do(mux, http.MethodPatch, "/events", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given an events API", t, func() {
		mux := newMux(newService())

		Convey("When posting a valid event", func() {
			w := do(mux, http.MethodPost, "/events",
				`{"type":"pee","time":"2026-06-01T11:00:00Z","location":"outdoor"}`)

			Convey("Then it is created with an ID", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				resp := decode[struct {
					Status    string          `json:"status"`
					Duplicate bool            `json:"duplicate"`
					Event     types.EventView `json:"event"`
				}](w)
				So(resp.Status, ShouldEqual, "created")
				So(resp.Event.ID, ShouldNotBeEmpty)
				So(resp.Event.Location, ShouldEqual, "outdoor")

				got := do(mux, http.MethodGet, "/events/"+resp.Event.ID, "")
				So(got.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When posting without a time", func() {
			w := do(mux, http.MethodPost, "/events", `{"type":"feed"}`)

			Convey("Then the server time is used", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, "2026-06-01T12:00:00Z")
			})
		})

		Convey("When a request is retried with the same idempotency key", func() {
			body := `{"type":"poop","time":"2026-06-01T11:30:00Z"}`
			first := do(mux, http.MethodPost, "/events", body, api.IdempotencyKeyHeader, "abc")
			second := do(mux, http.MethodPost, "/events", body, api.IdempotencyKeyHeader, "abc")

			Convey("Then the second reports a duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, `"duplicate":true`)

				list := do(mux, http.MethodGet, "/events", "")
				So(decode[[]types.EventView](list), ShouldHaveLength, 1)
			})
		})

		Convey("When posting a client ID twice", func() {
			body := `{"id":"fixed","type":"drink"}`
			_ = do(mux, http.MethodPost, "/events", body)
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then it conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When posting invalid payloads", func() {
			Convey("Then malformed JSON is rejected", func() {
				So(do(mux, http.MethodPost, "/events", `{bad`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then unknown types are rejected", func() {
				w := do(mux, http.MethodPost, "/events", `{"type":"nap"}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
			Convey("Then unknown fields are rejected", func() {
				So(do(mux, http.MethodPost, "/events", `{"type":"pee","mood":"x"}`).Code,
					ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then negative durations are rejected", func() {
				So(do(mux, http.MethodPost, "/events", `{"type":"walk","duration_minutes":-5}`).Code,
					ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When editing and deleting an event", func() {
			_ = do(mux, http.MethodPost, "/events", `{"id":"f1","type":"feed","time":"2026-06-01T10:00:00Z"}`)

			put := do(mux, http.MethodPut, "/events/f1", `{"type":"feed","note":"half portion"}`)
			mismatch := do(mux, http.MethodPut, "/events/f1", `{"id":"other","type":"feed"}`)
			missing := do(mux, http.MethodPut, "/events/nope", `{"type":"feed"}`)

			Convey("Then the replacement keeps the time", func() {
				So(put.Code, ShouldEqual, http.StatusOK)
				v := decode[types.EventView](put)
				So(v.Note, ShouldEqual, "half portion")
				So(*v.Time, ShouldEqual, ago(120))
				So(mismatch.Code, ShouldEqual, http.StatusBadRequest)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then deleting removes it", func() {
				So(do(mux, http.MethodDelete, "/events/f1", "").Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodGet, "/events/f1", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodDelete, "/events/f1", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When listing with filters", func() {
			_ = do(mux, http.MethodPost, "/events", `{"type":"pee","time":"2026-06-01T09:00:00Z"}`)
			_ = do(mux, http.MethodPost, "/events", `{"type":"feed","time":"2026-06-01T10:00:00Z"}`)
			_ = do(mux, http.MethodPost, "/events", `{"type":"poop","time":"2026-06-01T11:00:00Z"}`)

			Convey("Then type and time filters combine", func() {
				w := do(mux, http.MethodGet, "/events?type=pee&type=poop&since=2026-06-01T09:30:00Z", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				got := decode[[]types.EventView](w)
				So(got, ShouldHaveLength, 1)
				So(got[0].Type, ShouldEqual, "poop")
			})

			Convey("Then bad filters are rejected", func() {
				So(do(mux, http.MethodGet, "/events?since=yesterday", "").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodGet, "/events?type=nap", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSessionsHandler(t *testing.T) {
	Convey("Given a log with a finished nap, an open sleep and a walk", t, func() {
		mux := newMux(newService())
		_ = do(mux, http.MethodPost, "/events", `{"type":"sleep","time":"2026-06-01T08:00:00Z"}`)
		_ = do(mux, http.MethodPost, "/events", `{"type":"wake","time":"2026-06-01T09:00:00Z"}`)
		_ = do(mux, http.MethodPost, "/events", `{"id":"w1","type":"walk","time":"2026-06-01T09:10:00Z"}`)
		_ = do(mux, http.MethodPost, "/events", `{"type":"pee","time":"2026-06-01T09:15:00Z","parent_id":"w1"}`)
		_ = do(mux, http.MethodPost, "/events", `{"type":"sleep","time":"2026-06-01T11:30:00Z"}`)

		Convey("When listing sleep sessions", func() {
			got := decode[[]types.SleepSessionView](do(mux, http.MethodGet, "/sessions/sleep", ""))

			Convey("Then the nap is closed and the last sleep is ongoing", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].Ongoing, ShouldBeFalse)
				So(got[0].DurationMinutes, ShouldEqual, 60.0)
				So(got[1].Ongoing, ShouldBeTrue)
				So(got[1].DurationMinutes, ShouldEqual, 30.0)
			})
		})

		Convey("When asking for the ongoing sleep", func() {
			w := do(mux, http.MethodGet, "/sessions/sleep/ongoing", "")

			Convey("Then it is reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"ongoing":true`)
				So(w.Body.String(), ShouldContainSubstring, "2026-06-01T11:30:00Z")
			})
		})

		Convey("When listing walks", func() {
			got := decode[[]types.WalkSessionView](do(mux, http.MethodGet, "/sessions/walks", ""))

			Convey("Then the pee belongs to the walk", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "w1")
				So(got[0].HadPee, ShouldBeTrue)
				So(got[0].HadPoop, ShouldBeFalse)
			})
		})
	})

	Convey("Given a store that fails", t, func() {
		mux := newMux(failingDeps{newService()})

		Convey("Then the failure maps to 500", func() {
			w := do(mux, http.MethodGet, "/sessions/sleep", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "internal")
		})
	})
}

func TestPredictionsHandler(t *testing.T) {
	Convey("Given a pee after a meal", t, func() {
		mux := newMux(newService())
		_ = do(mux, http.MethodPost, "/events", `{"type":"feed","time":"2026-06-01T10:50:00Z"}`)
		_ = do(mux, http.MethodPost, "/events", `{"id":"p1","type":"pee","time":"2026-06-01T11:00:00Z"}`)

		Convey("When predicting now", func() {
			w := do(mux, http.MethodGet, "/predictions/potty", "")

			Convey("Then the post-meal gap applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				p := decode[types.PredictionView](w)
				So(p.Trigger, ShouldEqual, "meal")
				So(p.RoundedGapMinutes, ShouldEqual, 68)
				So(p.LastOccurrenceID, ShouldEqual, "p1")
				So(*p.ExpectedNextTime, ShouldEqual, time.Date(2026, 6, 1, 12, 8, 0, 0, time.UTC))
				So(p.Urgency, ShouldEqual, "due_soon")
			})
		})

		Convey("When predicting at a later instant", func() {
			w := do(mux, http.MethodGet, "/predictions/potty?at=2026-06-01T12:30:00Z", "")

			Convey("Then it is overdue", func() {
				p := decode[types.PredictionView](w)
				So(p.Urgency, ShouldEqual, "overdue")
				So(*p.MinutesUntil, ShouldEqual, -22.0)
			})
		})

		Convey("When the instant is malformed", func() {
			So(do(mux, http.MethodGet, "/predictions/potty?at=noon", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading the gap history", func() {
			w := do(mux, http.MethodGet, "/gaps/potty", "")

			Convey("Then a single occurrence is insufficient", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"sufficient":false`)
				So(w.Body.String(), ShouldContainSubstring, `"gap_minutes":[]`)
			})
		})
	})
}

func TestCoverageHandler(t *testing.T) {
	Convey("Given a pee logged before the caregiver leaves", t, func() {
		mux := newMux(newService())
		_ = do(mux, http.MethodPost, "/events", `{"type":"pee","time":"2026-06-01T11:00:00Z"}`)

		Convey("When a coverage gap is started", func() {
			w := do(mux, http.MethodPost, "/coverage-gaps", `{"reason":"daycare"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			g := decode[types.CoverageGapView](w)

			Convey("Then tracking is paused", func() {
				So(g.Active, ShouldBeTrue)
				p := decode[types.PredictionView](do(mux, http.MethodGet, "/predictions/potty?at=2026-06-01T12:05:00Z", ""))
				So(p.Urgency, ShouldEqual, "tracking_paused")
			})

			Convey("And ending it twice conflicts", func() {
				end := do(mux, http.MethodPost, "/coverage-gaps/"+g.ID+"/end", `{"end":"2026-06-01T13:00:00Z"}`)
				So(end.Code, ShouldEqual, http.StatusOK)
				So(decode[types.CoverageGapView](end).End, ShouldNotBeNil)

				again := do(mux, http.MethodPost, "/coverage-gaps/"+g.ID+"/end", "")
				So(again.Code, ShouldEqual, http.StatusConflict)

				list := decode[[]types.CoverageGapView](do(mux, http.MethodGet, "/coverage-gaps", ""))
				So(list, ShouldHaveLength, 1)
			})

			Convey("And an end before the start is rejected", func() {
				w := do(mux, http.MethodPost, "/coverage-gaps/"+g.ID+"/end", `{"end":"2026-06-01T11:00:00Z"}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When ending an unknown gap", func() {
			So(do(mux, http.MethodPost, "/coverage-gaps/nope/end", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSummaryHandler(t *testing.T) {
	Convey("Given a small log", t, func() {
		mux := newMux(newService())
		_ = do(mux, http.MethodPost, "/events", `{"type":"pee","time":"2026-06-01T11:00:00Z"}`)
		_ = do(mux, http.MethodPost, "/events", `{"type":"sleep","time":"2026-06-01T11:10:00Z"}`)

		Convey("When requesting the summary", func() {
			w := do(mux, http.MethodGet, "/summary", "")

			Convey("Then every section is present", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode[map[string]any](w)
				So(body["events"], ShouldEqual, 2.0)
				So(body["ongoing_sleep"], ShouldNotBeNil)
				So(body["walks"], ShouldBeEmpty)
				So(body["coverage_gaps"], ShouldBeEmpty)
				So(body["prediction"].(map[string]any)["urgency"], ShouldEqual, "normal")
			})
		})
	})
}
