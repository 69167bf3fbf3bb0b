// Package ui holds the terminal styles of the d100 CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/defend100/internal/domain/scoring"
)

const (
	IconShield  = "🛡️"
	IconSparkle = "✨"
	IconDone    = "✅"
	IconTrophy  = "🏆"
	IconBolt    = "⚡"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconScroll  = "📜"
	IconFire    = "🔥"
	IconChart   = "📊"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("TIER UP")
)

// barWidth is the number of cells in a ScoreBar.
const barWidth = 20

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// BandStyle returns the style used for scores in band b.
func BandStyle(b scoring.Band) lipgloss.Style {
	switch b {
	case scoring.BandPerfect:
		return Gold
	case scoring.BandSuccess:
		return Good
	case scoring.BandWarning:
		return Warn
	case scoring.BandFail:
		return Bad
	default:
		return Muted
	}
}

// BandText renders a score with its band color.
func BandText(score int) string {
	b := scoring.BandFor(score)
	return BandStyle(b).Render(fmt.Sprintf("%d (%s)", score, b))
}

// ScoreBar renders score as a fixed-width bar. Out of range scores are clamped.
func ScoreBar(score int) string {
	score = max(0, min(100, score))
	filled := score * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return BandStyle(scoring.BandFor(score)).Render(bar)
}

// TransitionText describes a band change after a write; empty when nothing changed.
func TransitionText(t scoring.Transition) string {
	switch t {
	case scoring.TransitionPerfect:
		return Gold.Render(IconTrophy + " perfect day")
	case scoring.TransitionUp:
		return Good.Render(IconBolt + " tier up")
	case scoring.TransitionDown:
		return Warn.Render(IconWarn + " tier down")
	default:
		return ""
	}
}

func EnabledText(ok bool) string {
	if ok {
		return Good.Render("active")
	}
	return Muted.Render("inactive")
}
