package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/internal/domain/types"
)

// CoverageHandler serves caregiver-declared coverage gaps.
type CoverageHandler struct {
	deps CoverageDependencies
}

// NewCoverageHandler creates a new coverage gap handler.
func NewCoverageHandler(deps CoverageDependencies) *CoverageHandler {
	return &CoverageHandler{deps: deps}
}

type startCoverageRequest struct {
	Start  *time.Time `json:"start,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

type endCoverageRequest struct {
	End *time.Time `json:"end,omitempty"`
}

// HandleStart handles POST /coverage-gaps requests. A missing start means now.
func (h *CoverageHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_coverage"
	var req startCoverageRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	start := h.deps.Now()
	if req.Start != nil {
		start = *req.Start
	}
	g, err := h.deps.StartCoverage(r.Context(), start, req.Reason)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.NewCoverageGapViews([]model.CoverageGap{g}, h.deps.Now())[0])
}

// HandleEnd handles POST /coverage-gaps/{id}/end requests. An empty body
// ends the gap now.
func (h *CoverageHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	const op = "api.end_coverage"
	var req endCoverageRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeFailure(w, op, err)
		return
	}
	end := h.deps.Now()
	if req.End != nil {
		end = *req.End
	}
	g, err := h.deps.EndCoverage(r.Context(), r.PathValue("id"), end)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewCoverageGapViews([]model.CoverageGap{g}, h.deps.Now())[0])
}

// HandleList handles GET /coverage-gaps requests.
func (h *CoverageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	gs, err := h.deps.CoverageGaps(r.Context())
	if err != nil {
		writeFailure(w, "api.list_coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewCoverageGapViews(gs, h.deps.Now()))
}
