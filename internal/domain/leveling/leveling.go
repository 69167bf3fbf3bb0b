// Package leveling maps cumulative XP, the sum of all daily scores, onto a
// fixed ladder of ten ranks.
package leveling

import (
	"math"

	"github.com/okian/defend100/internal/domain/progress"
)

// Tier is one rung of the ladder. MinXP is inclusive.
type Tier struct {
	Level int    `json:"level"`
	Rank  string `json:"rank"`
	MinXP int    `json:"min_xp"`
}

var tiers = []Tier{
	{Level: 1, Rank: "Novice Defender", MinXP: 0},
	{Level: 2, Rank: "Shield Bearer", MinXP: 500},
	{Level: 3, Rank: "Iron Sentinel", MinXP: 2000},
	{Level: 4, Rank: "Aura Guardian", MinXP: 5000},
	{Level: 5, Rank: "Will Warrior", MinXP: 10000},
	{Level: 6, Rank: "Discipline Master", MinXP: 20000},
	{Level: 7, Rank: "Unbreakable Spirit", MinXP: 35000},
	{Level: 8, Rank: "Time Bender", MinXP: 55000},
	{Level: 9, Rank: "Eternal Defender", MinXP: 80000},
	{Level: 10, Rank: "Legendary Protector", MinXP: 120000},
}

// MaxLevel is the terminal level.
const MaxLevel = 10

// Tiers returns a copy of the ladder in ascending order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// RankInfo describes where an XP total sits on the ladder.
type RankInfo struct {
	Level       int     `json:"level"`
	Rank        string  `json:"rank"`
	CurrentXP   float64 `json:"current_xp"`
	NextLevelXP float64 `json:"next_level_xp"`
	// ProgressPct is the linear progress through the current tier, 0..100.
	ProgressPct float64 `json:"progress_pct"`
	NextRank    string  `json:"next_rank,omitempty"`
}

// Rank resolves xp. Negative and NaN inputs count as zero. On the terminal
// tier NextLevelXP equals xp and ProgressPct is 100.
func Rank(xp float64) RankInfo {
	if math.IsNaN(xp) || xp < 0 {
		xp = 0
	}

	cur := 0
	for i, t := range tiers {
		if xp < float64(t.MinXP) {
			break
		}
		cur = i
	}

	current := tiers[cur]
	info := RankInfo{Level: current.Level, Rank: current.Rank, CurrentXP: xp}
	if cur == len(tiers)-1 {
		info.NextLevelXP = xp
		info.ProgressPct = 100
		return info
	}

	next := tiers[cur+1]
	info.NextLevelXP = float64(next.MinXP)
	info.NextRank = next.Rank
	span := float64(next.MinXP - current.MinXP)
	info.ProgressPct = math.Min(100, math.Max(0, (xp-float64(current.MinXP))/span*100))
	return info
}

// XPFromHistory sums the daily scores of history.
func XPFromHistory(history map[progress.DateKey]int) int {
	total := 0
	for _, s := range history {
		total += s
	}
	return total
}
