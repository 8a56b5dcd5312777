package api

import (
	"net/http"

	"github.com/okian/pupcare/internal/domain/types"
)

// PredictionsHandler serves the potty prediction and its gap history.
type PredictionsHandler struct {
	deps PredictionDependencies
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps PredictionDependencies) *PredictionsHandler {
	return &PredictionsHandler{deps: deps}
}

// HandlePotty handles GET /predictions/potty[?at=RFC3339] requests.
func (h *PredictionsHandler) HandlePotty(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_potty"
	at, err := timeParam(r, "at", h.deps.Now())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	p, err := h.deps.Predict(r.Context(), at)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewPredictionView(p, at))
}

// HandleGaps handles GET /gaps/potty[?at=RFC3339] requests.
func (h *PredictionsHandler) HandleGaps(w http.ResponseWriter, r *http.Request) {
	const op = "api.potty_gaps"
	at, err := timeParam(r, "at", h.deps.Now())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	st, err := h.deps.GapStats(r.Context(), at)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewGapStatsView(st))
}
