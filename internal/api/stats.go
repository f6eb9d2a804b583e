package api

import (
	"net/http"

	"cameraapitest/pkg/tracker"
)

// StatsHandler serves usage counters.
type StatsHandler struct {
	tracker *tracker.Tracker
}

// NewStatsHandler creates a new StatsHandler. Returns nil if the tracker is missing.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	if t == nil {
		return nil
	}
	return &StatsHandler{tracker: t}
}

// HandleStats returns the current counters.
// GET /api/stats
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}
