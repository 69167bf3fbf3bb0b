// Package types contains read shapes shared by the service and its adapters.
package types

import (
	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/leveling"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/domain/scoring"
)

// DayScore is one scored day.
type DayScore struct {
	Date  progress.DateKey `json:"date"`
	Score int              `json:"score"`
	Band  scoring.Band     `json:"band"`
}

// NewDayScore builds a DayScore and its band.
func NewDayScore(date progress.DateKey, score int) DayScore {
	return DayScore{Date: date, Score: score, Band: scoring.BandFor(score)}
}

// ProgressView is the recorded values of a day together with its score.
type ProgressView struct {
	Date   progress.DateKey      `json:"date"`
	Values map[goals.Key]float64 `json:"values"`
	Score  int                   `json:"score"`
	Band   scoring.Band          `json:"band"`
}

// SetResult reports the outcome of recording one value.
type SetResult struct {
	Date       progress.DateKey   `json:"date"`
	Entry      progress.Entry     `json:"entry"`
	Score      int                `json:"score"`
	Previous   int                `json:"previous_score"`
	Transition scoring.Transition `json:"transition"`
	// Duplicate is set when the write ID was already applied.
	Duplicate bool `json:"duplicate"`
	// Queued is false when the persistence write could not be enqueued.
	Queued bool `json:"persisted_async"`
}

// Profile combines the rank with the history summary.
type Profile struct {
	Rank    leveling.RankInfo `json:"rank"`
	Summary scoring.Summary   `json:"summary"`
	// TotalXP is the cumulative XP computed from the current history.
	TotalXP int `json:"total_xp"`
}
