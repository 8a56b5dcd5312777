package api

import (
	"net/http"

	"github.com/okian/pupcare/internal/domain/types"
)

// SessionsHandler serves reconstructed sleep and walk sessions.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type ongoingResponse struct {
	Ongoing bool                    `json:"ongoing"`
	Session *types.SleepSessionView `json:"session,omitempty"`
}

// HandleSleep handles GET /sessions/sleep requests.
func (h *SessionsHandler) HandleSleep(w http.ResponseWriter, r *http.Request) {
	ss, err := h.deps.SleepSessions(r.Context())
	if err != nil {
		writeFailure(w, "api.sleep_sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewSleepSessionViews(ss, h.deps.Now()))
}

// HandleOngoing handles GET /sessions/sleep/ongoing requests.
func (h *SessionsHandler) HandleOngoing(w http.ResponseWriter, r *http.Request) {
	s, ok, err := h.deps.OngoingSleep(r.Context())
	if err != nil {
		writeFailure(w, "api.ongoing_sleep", err)
		return
	}
	resp := ongoingResponse{Ongoing: ok}
	if ok {
		v := types.NewSleepSessionView(s, h.deps.Now())
		resp.Session = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleWalks handles GET /sessions/walks requests.
func (h *SessionsHandler) HandleWalks(w http.ResponseWriter, r *http.Request) {
	ws, err := h.deps.WalkSessions(r.Context())
	if err != nil {
		writeFailure(w, "api.walk_sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewWalkSessionViews(ws))
}
