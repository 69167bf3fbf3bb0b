package root

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/ui"
)

func newHistoryCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List scored days, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, func(svc *app.Service) error {
				days := svc.HistoryDays(limit)
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ui.Heading(ui.IconScroll, "History"))
				if len(days) == 0 {
					fmt.Fprintln(out, ui.Muted.Render("no days recorded yet"))
					return nil
				}
				for _, d := range days {
					fmt.Fprintf(out, "%s %s %s\n", string(d.Date), ui.ScoreBar(d.Score), ui.BandText(d.Score))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "Most recent days to show (0 for all)")
	return cmd
}
