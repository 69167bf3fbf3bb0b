package scoring

import (
	"math"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
)

// Band classifies a score for display.
type Band string

// Bands from best to worst.
const (
	BandPerfect Band = "perfect"
	BandSuccess Band = "success"
	BandWarning Band = "warning"
	BandFail    Band = "fail"
)

// Lower bounds of each band, inclusive.
const (
	perfectFrom = 90
	successFrom = 70
	warningFrom = 40
)

// BandFor returns the band score falls into.
func BandFor(score int) Band {
	switch {
	case score >= perfectFrom:
		return BandPerfect
	case score >= successFrom:
		return BandSuccess
	case score >= warningFrom:
		return BandWarning
	default:
		return BandFail
	}
}

func (b Band) tier() int {
	switch b {
	case BandPerfect:
		return 3
	case BandSuccess:
		return 2
	case BandWarning:
		return 1
	default:
		return 0
	}
}

// Transition describes how a score change moved between bands.
type Transition string

// Transition kinds.
const (
	TransitionNone    Transition = "none"
	TransitionUp      Transition = "up"
	TransitionDown    Transition = "down"
	TransitionPerfect Transition = "perfect"
)

// TransitionBetween compares two consecutive scores of the same day. Reaching
// MaxScore is reported as perfect even within the top band.
func TransitionBetween(prev, next int) Transition {
	if next == prev {
		return TransitionNone
	}
	if next == MaxScore {
		return TransitionPerfect
	}
	pt, nt := BandFor(prev).tier(), BandFor(next).tier()
	switch {
	case nt > pt:
		return TransitionUp
	case nt < pt:
		return TransitionDown
	default:
		return TransitionNone
	}
}

// Deduction is one line of the audit receipt.
type Deduction struct {
	Key       goals.Key `json:"key"`
	Direction string    `json:"direction"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Unit      string    `json:"unit"`
	// Percent is the penalty ratio as a rounded percentage.
	Percent int `json:"percent"`
	// Points is the rounded deduction, always negative.
	Points int `json:"points"`
}

// Audit is the receipt of a day's score.
type Audit struct {
	Date            progress.DateKey `json:"date"`
	Score           int              `json:"score"`
	Band            Band             `json:"band"`
	Deductions      []Deduction      `json:"deductions"`
	TotalDeductions int              `json:"total_deductions"`
	Pooled          []goals.Key      `json:"pooled"`
}

// AuditDay explains the score of entry on date. Goals whose rounded
// deduction is zero are left off the receipt, so TotalDeductions may differ
// from the exact penalty by rounding.
func AuditDay(table goals.Table, date progress.DateKey, entry progress.Entry) Audit {
	eval := Evaluate(table, entry)
	a := Audit{
		Date:       date,
		Score:      eval.Score,
		Band:       BandFor(eval.Score),
		Deductions: []Deduction{},
		Pooled:     make([]goals.Key, 0, len(eval.Pool)),
	}
	for _, c := range eval.Pool {
		a.Pooled = append(a.Pooled, c.Key)
		if c.PenaltyRatio <= 0 {
			continue
		}
		pts := int(math.Round(c.Penalty))
		if pts <= 0 {
			continue
		}
		cfg, _ := table.Get(c.Key)
		a.Deductions = append(a.Deductions, Deduction{
			Key:       c.Key,
			Direction: c.Direction.String(),
			Value:     c.Value,
			Threshold: c.Threshold,
			Unit:      cfg.Unit,
			Percent:   int(math.Round(c.PenaltyRatio * 100)),
			Points:    -pts,
		})
		a.TotalDeductions -= pts
	}
	return a
}
