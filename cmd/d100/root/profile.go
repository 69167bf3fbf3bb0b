package root

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/ui"
)

func newProfileCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show averages, streak and the last seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, func(svc *app.Service) error {
				p := svc.Profile()
				s := p.Summary

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ui.Heading(ui.IconSparkle, fmt.Sprintf("%s (level %d)", p.Rank.Rank, p.Rank.Level)))
				fmt.Fprintln(out, ui.LabelValue("Total XP", p.TotalXP))
				fmt.Fprintln(out, ui.LabelValue("Average", ui.BandText(s.AverageScore)))
				fmt.Fprintln(out, ui.LabelValue("Days tracked", s.TotalDays))
				fmt.Fprintln(out, ui.LabelValue("Strong days", s.PerfectDays))
				fmt.Fprintln(out, ui.LabelValue("Streak", fmt.Sprintf("%s %d", ui.IconFire, s.CurrentStreak)))
				fmt.Fprintln(out, "")

				fmt.Fprintln(out, ui.H2.Render(ui.IconChart+" Last 7 days"))
				for _, d := range s.Week {
					if !d.HasData {
						fmt.Fprintf(out, "%s %s\n", string(d.Date), ui.Muted.Render("-"))
						continue
					}
					fmt.Fprintf(out, "%s %s %s\n", string(d.Date), ui.ScoreBar(d.Score), ui.BandText(d.Score))
				}
				return nil
			})
		},
	}
}
