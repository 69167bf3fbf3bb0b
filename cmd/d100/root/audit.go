package root

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/ui"
)

func newAuditCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [date]",
		Short: "Explain a day's score goal by goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, func(svc *app.Service) error {
				date, err := svc.ResolveDate(optionalDate(args))
				if err != nil {
					return err
				}
				a := svc.Audit(date)

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ui.Heading(ui.IconScroll, "Audit "+string(a.Date)))
				fmt.Fprintln(out, ui.LabelValue("Score", ui.BandText(a.Score)))
				if len(a.Deductions) == 0 {
					fmt.Fprintln(out, ui.Good.Render("no deductions"))
					return nil
				}
				for _, d := range a.Deductions {
					fmt.Fprintf(out, "- %s %v/%v %s %s %s\n",
						ui.Key.Render(string(d.Key)+":"),
						d.Value, d.Threshold, d.Unit,
						ui.Muted.Render(fmt.Sprintf("%d%% off", d.Percent)),
						ui.Bad.Render(fmt.Sprintf("%d", d.Points)),
					)
				}
				fmt.Fprintln(out, ui.LabelValue("Total", ui.Bad.Render(fmt.Sprintf("%d", a.TotalDeductions))))
				return nil
			})
		},
	}
}
