package scoring

import (
	"math"
	"sort"

	"github.com/okian/defend100/internal/domain/progress"
)

// StrongDayFrom is the score from which a day counts as a perfect day on the
// profile.
const StrongDayFrom = 80

// WeekLength is the number of days in the weekly series.
const WeekLength = 7

// Day is one point of the weekly series.
type Day struct {
	Date    progress.DateKey `json:"date"`
	Score   int              `json:"score"`
	HasData bool             `json:"has_data"`
}

// Summary aggregates a score history for the profile view.
type Summary struct {
	AverageScore  int   `json:"average_score"`
	TotalDays     int   `json:"total_days"`
	PerfectDays   int   `json:"perfect_days"`
	CurrentStreak int   `json:"current_streak"`
	Week          []Day `json:"week"`
}

// Summarize computes profile statistics of history as seen on today.
func Summarize(history map[progress.DateKey]int, today progress.DateKey) Summary {
	s := Summary{TotalDays: len(history), Week: make([]Day, 0, WeekLength)}

	sum := 0
	for _, score := range history {
		sum += score
		if score >= StrongDayFrom {
			s.PerfectDays++
		}
	}
	if s.TotalDays > 0 {
		s.AverageScore = int(math.Round(float64(sum) / float64(s.TotalDays)))
	}

	s.CurrentStreak = streak(history, today)

	for i := WeekLength - 1; i >= 0; i-- {
		d, err := today.AddDays(-i)
		if err != nil {
			continue
		}
		score, ok := history[d]
		s.Week = append(s.Week, Day{Date: d, Score: score, HasData: ok})
	}
	return s
}

// streak counts consecutive recorded days ending on the latest recorded day,
// provided that day is today or yesterday.
func streak(history map[progress.DateKey]int, today progress.DateKey) int {
	if len(history) == 0 {
		return 0
	}
	dates := make([]progress.DateKey, 0, len(history))
	for d := range history {
		if d <= today {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] > dates[j] })

	yesterday, err := today.AddDays(-1)
	if err != nil {
		return 0
	}
	if dates[0] != today && dates[0] != yesterday {
		return 0
	}

	n := 1
	for i := 1; i < len(dates); i++ {
		want, err := dates[i-1].AddDays(-1)
		if err != nil || dates[i] != want {
			break
		}
		n++
	}
	return n
}
