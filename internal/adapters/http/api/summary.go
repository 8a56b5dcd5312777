package api

import (
	"net/http"
)

// SummaryHandler serves the combined view of the log.
type SummaryHandler struct {
	deps Dependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps Dependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleSummary handles GET /summary[?at=RFC3339] requests.
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	at, err := timeParam(r, "at", h.deps.Now())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	sum, err := h.deps.Summary(r.Context(), at)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum.View())
}
