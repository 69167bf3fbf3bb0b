package root

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/ui"
)

func optionalDate(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func newScoreCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "score [date]",
		Short: "Show the integrity score and recorded values of a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, func(svc *app.Service) error {
				date, err := svc.ResolveDate(optionalDate(args))
				if err != nil {
					return err
				}
				view := svc.Progress(date)

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ui.Heading(ui.IconShield, "Integrity "+string(date)))
				fmt.Fprintln(out, ui.LabelValue("Score", ui.BandText(view.Score)), ui.ScoreBar(view.Score))
				if len(view.Values) == 0 {
					fmt.Fprintln(out, ui.Muted.Render("nothing recorded"))
					return nil
				}
				for _, c := range svc.Goals().All() {
					v, ok := view.Values[c.Key]
					if !ok {
						continue
					}
					fmt.Fprintf(out, "- %s %v %s\n", ui.Key.Render(string(c.Key)+":"), v, ui.Muted.Render(c.Unit))
				}
				return nil
			})
		},
	}
}
