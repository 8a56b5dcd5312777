// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/pupcare/internal/adapters/repository"
	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/domain/gaps"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventDependencies
	SessionDependencies
	PredictionDependencies
	CoverageDependencies
	SummaryDependencies
}

// EventDependencies covers the event log endpoints.
type EventDependencies interface {
	Now() time.Time
	LogEvent(ctx context.Context, e model.Event, key string) (model.Event, bool, error)
	ReplaceEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	Event(ctx context.Context, id string) (model.Event, error)
	Events(ctx context.Context, f service.EventFilter) ([]model.Event, error)
}

// SessionDependencies covers the reconstructed session endpoints.
type SessionDependencies interface {
	Now() time.Time
	SleepSessions(ctx context.Context) ([]model.SleepSession, error)
	OngoingSleep(ctx context.Context) (model.SleepSession, bool, error)
	WalkSessions(ctx context.Context) ([]model.WalkSession, error)
}

// PredictionDependencies covers the prediction endpoints.
type PredictionDependencies interface {
	Now() time.Time
	Predict(ctx context.Context, at time.Time) (model.Prediction, error)
	GapStats(ctx context.Context, at time.Time) (gaps.Stats, error)
}

// CoverageDependencies covers the coverage gap endpoints.
type CoverageDependencies interface {
	Now() time.Time
	StartCoverage(ctx context.Context, start time.Time, reason string) (model.CoverageGap, error)
	EndCoverage(ctx context.Context, id string, end time.Time) (model.CoverageGap, error)
	CoverageGaps(ctx context.Context) ([]model.CoverageGap, error)
}

// SummaryDependencies covers the summary endpoint.
type SummaryDependencies interface {
	Summary(ctx context.Context, at time.Time) (service.Summary, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	sessionsHandler    *SessionsHandler
	predictionsHandler *PredictionsHandler
	coverageHandler    *CoverageHandler
	summaryHandler     *SummaryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		sessionsHandler:    NewSessionsHandler(deps),
		predictionsHandler: NewPredictionsHandler(deps),
		coverageHandler:    NewCoverageHandler(deps),
		summaryHandler:     NewSummaryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("GET /events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
	mux.HandleFunc("GET /events/{id}", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "event"))
	mux.HandleFunc("PUT /events/{id}", MetricsMiddleware(s.eventsHandler.HandlePutEvent, "event"))
	mux.HandleFunc("DELETE /events/{id}", MetricsMiddleware(s.eventsHandler.HandleDeleteEvent, "event"))

	mux.HandleFunc("GET /sessions/sleep", MetricsMiddleware(s.sessionsHandler.HandleSleep, "sessions_sleep"))
	mux.HandleFunc("GET /sessions/sleep/ongoing", MetricsMiddleware(s.sessionsHandler.HandleOngoing, "sessions_sleep_ongoing"))
	mux.HandleFunc("GET /sessions/walks", MetricsMiddleware(s.sessionsHandler.HandleWalks, "sessions_walks"))

	mux.HandleFunc("GET /predictions/potty", MetricsMiddleware(s.predictionsHandler.HandlePotty, "predictions_potty"))
	mux.HandleFunc("GET /gaps/potty", MetricsMiddleware(s.predictionsHandler.HandleGaps, "gaps_potty"))

	mux.HandleFunc("POST /coverage-gaps", MetricsMiddleware(s.coverageHandler.HandleStart, "coverage_gaps"))
	mux.HandleFunc("GET /coverage-gaps", MetricsMiddleware(s.coverageHandler.HandleList, "coverage_gaps"))
	mux.HandleFunc("POST /coverage-gaps/{id}/end", MetricsMiddleware(s.coverageHandler.HandleEnd, "coverage_gap_end"))

	mux.HandleFunc("GET /summary", MetricsMiddleware(s.summaryHandler.HandleSummary, "summary"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain and storage errors to a status and error code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, types.ErrInvalidView),
		errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, model.ErrUnknownEventType),
		errors.Is(err, model.ErrUnknownLocation),
		errors.Is(err, repository.ErrMissingID):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, repository.ErrCoverageClosed):
		writeError(w, http.StatusConflict, "coverage_closed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// decode reads a JSON body, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind("decode", ErrBadRequest, err)
	}
	return nil
}

// timeParam parses an optional RFC3339 query parameter, returning fallback
// when it is absent.
func timeParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, WrapKind("query", ErrBadRequest, errors.New("invalid "+name+"; must be RFC3339"))
	}
	return t, nil
}
