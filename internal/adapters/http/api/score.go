package api

import (
	"net/http"

	"github.com/okian/defend100/internal/domain/types"
)

// defaultHistoryLimit matches the CLI's history view.
const defaultHistoryLimit = 30

// ScoreHandler serves daily scores, history and audits.
type ScoreHandler struct {
	deps       Dependencies
	maxHistory int
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleGetScore handles GET /score/{date}.
func (h *ScoreHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	date, err := h.deps.ResolveDate(r.PathValue("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	view := h.deps.Progress(date)
	writeJSON(w, http.StatusOK, types.DayScore{Date: view.Date, Score: view.Score, Band: view.Band})
}

// HandleGetHistory handles GET /history?limit=N. limit=0 returns every day,
// up to the configured cap.
func (h *ScoreHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if h.maxHistory > 0 && (limit == 0 || limit > h.maxHistory) {
		limit = h.maxHistory
	}
	writeJSON(w, http.StatusOK, h.deps.HistoryDays(limit))
}

// HandleGetAudit handles GET /audit/{date}.
func (h *ScoreHandler) HandleGetAudit(w http.ResponseWriter, r *http.Request) {
	date, err := h.deps.ResolveDate(r.PathValue("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Audit(date))
}
