package api

import (
	"net/http"

	"github.com/okian/defend100/internal/domain/leveling"
)

// StatsProvider exposes service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
	RankInfo() leveling.RankInfo
}

// StatsHandler reports service counters alongside the API's own limits.
type StatsHandler struct {
	provider StatsProvider

	rateLimit  float64
	burst      int
	maxHistory int
}

func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats. Service keys are kept flat; level and xp
// come from the current rank.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.provider.GetStats()
	r := h.provider.RankInfo()
	stats["level"] = r.Level
	stats["xp"] = r.CurrentXP
	stats["rateLimitRPS"] = h.rateLimit
	stats["rateLimitBurst"] = h.burst
	stats["maxHistoryDays"] = h.maxHistory
	writeJSON(w, http.StatusOK, stats)
}
