package root

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/ui"
)

func newRankCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rank",
		Short: "Show level, rank and XP progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, func(svc *app.Service) error {
				r := svc.RankInfo()
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ui.Heading(ui.IconTrophy, r.Rank))
				fmt.Fprintln(out, ui.LabelValue("Level", r.Level))
				if r.NextRank == "" {
					fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("%.0f", r.CurrentXP)), ui.Gold.Render("max rank"))
					return nil
				}
				fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("%.0f / %.0f", r.CurrentXP, r.NextLevelXP)),
					ui.Muted.Render(fmt.Sprintf("(%.0f%% to %s)", r.ProgressPct, r.NextRank)))
				return nil
			})
		},
	}
}
