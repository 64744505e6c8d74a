package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// StatsProvider reports service counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler wraps p.
func NewStatsHandler(p StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: p}
}

// HandleStats writes an uncached snapshot.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, h.statsProvider.GetStats())
}
