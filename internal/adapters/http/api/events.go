package api

import (
	"net/http"

	service "github.com/okian/pupcare/internal/app"
	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/types"
)

// IdempotencyKeyHeader carries the client's retry key on POST /events.
const IdempotencyKeyHeader = "Idempotency-Key"

// EventsHandler handles event requests
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type eventResponse struct {
	Status    string          `json:"status"`
	Duplicate bool            `json:"duplicate"`
	Event     types.EventView `json:"event"`
}

// HandlePostEvent handles POST /events requests
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req types.EventView
	if err := decode(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	e, err := req.Event()
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	stored, duplicate, err := h.deps.LogEvent(r.Context(), e, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, eventResponse{Status: "duplicate", Duplicate: true, Event: types.NewEventView(stored)})
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{Status: "created", Event: types.NewEventView(stored)})
}

// HandleListEvents handles GET /events?since=&until=&type= requests
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	var (
		f   service.EventFilter
		err error
	)
	if f.Since, err = timeParam(r, "since", f.Since); err != nil {
		writeFailure(w, op, err)
		return
	}
	if f.Until, err = timeParam(r, "until", f.Until); err != nil {
		writeFailure(w, op, err)
		return
	}
	for _, name := range r.URL.Query()["type"] {
		t, err := model.ParseEventType(name)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		f.Types = append(f.Types, t)
	}

	events, err := h.deps.Events(r.Context(), f)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewEventViews(events))
}

// HandleGetEvent handles GET /events/{id} requests
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.deps.Event(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, "api.get_event", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewEventView(e))
}

// HandlePutEvent handles PUT /events/{id} requests. The body replaces the
// whole event; a missing time keeps the stored one.
func (h *EventsHandler) HandlePutEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_event"
	id := r.PathValue("id")
	var req types.EventView
	if err := decode(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "id_mismatch", NewKind(op, ErrBadRequest))
		return
	}
	e, err := req.Event()
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	e.ID = id
	if err := h.deps.ReplaceEvent(r.Context(), e); err != nil {
		writeFailure(w, op, err)
		return
	}
	stored, err := h.deps.Event(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewEventView(stored))
}

// HandleDeleteEvent handles DELETE /events/{id} requests
func (h *EventsHandler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, "api.delete_event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
