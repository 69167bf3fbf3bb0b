// Package scoring turns a goal table and one day of recorded values into a
// 0–100 integrity score.
//
// Only goals that are active and have a finite value recorded for the day
// take part (the dynamic pool). Weights are renormalised over that pool, so
// goals the user did not report neither help nor hurt. A day with an empty
// pool scores MaxScore.
package scoring

import (
	"math"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// Contribution is one pooled goal's share of a day's score.
type Contribution struct {
	Key       goals.Key
	Direction goals.Direction
	Value     float64
	Threshold float64
	Weight    int
	// PenaltyRatio is the normalised shortfall or overshoot in [0,1].
	PenaltyRatio float64
	// MaxPenalty is weight/totalWeight*100, the most this goal can deduct.
	MaxPenalty float64
	// Penalty is PenaltyRatio*MaxPenalty.
	Penalty float64
}

// Evaluation is the full breakdown behind a score.
type Evaluation struct {
	Score        int
	TotalWeight  int
	TotalPenalty float64
	Pool         []Contribution
}

// PenaltyRatio returns the penalty ratio of value against c, in [0,1].
// Thresholds that are not positive and finite never penalise.
func PenaltyRatio(c goals.Config, value float64) float64 {
	if !c.HasThreshold() {
		return 0
	}
	t := c.Threshold
	switch c.Direction {
	case goals.Minimize:
		if value <= t {
			return 0
		}
		return math.Min(1, (value-t)/t)
	case goals.Maximize:
		if value >= t {
			return 0
		}
		// Negative readings cannot push the ratio past a full miss.
		return math.Min(1, 1-value/t)
	default:
		return 0
	}
}

// Evaluate computes the score of entry under table with its breakdown.
func Evaluate(table goals.Table, entry progress.Entry) Evaluation {
	pool := make([]Contribution, 0, goals.Count)
	var totalWeight float64
	for _, c := range table.Active() {
		v, ok := entry.Value(c.Key)
		if !ok {
			continue
		}
		w := c.EffectiveWeight()
		totalWeight += float64(w)
		pool = append(pool, Contribution{
			Key:          c.Key,
			Direction:    c.Direction,
			Value:        v,
			Threshold:    c.Threshold,
			Weight:       w,
			PenaltyRatio: PenaltyRatio(c, v),
		})
	}

	if len(pool) == 0 {
		return Evaluation{Score: MaxScore}
	}

	var totalPenalty float64
	for i := range pool {
		pool[i].MaxPenalty = float64(pool[i].Weight) / totalWeight * MaxScore
		pool[i].Penalty = pool[i].PenaltyRatio * pool[i].MaxPenalty
		totalPenalty += pool[i].Penalty
	}

	return Evaluation{
		Score:        clamp(int(math.Round(math.Max(0, MaxScore-totalPenalty)))),
		TotalWeight:  int(totalWeight),
		TotalPenalty: totalPenalty,
		Pool:         pool,
	}
}

// Score returns the integrity score of entry under table.
func Score(table goals.Table, entry progress.Entry) int {
	return Evaluate(table, entry).Score
}

// History applies the current table to every recorded date. Past scores are
// a projection of their inputs, so changing the table changes them too.
func History(table goals.Table, all map[progress.DateKey]progress.Entry) map[progress.DateKey]int {
	out := make(map[progress.DateKey]int, len(all))
	for d, e := range all {
		out[d] = Score(table, e)
	}
	return out
}

func clamp(s int) int {
	switch {
	case s < MinScore:
		return MinScore
	case s > MaxScore:
		return MaxScore
	default:
		return s
	}
}
