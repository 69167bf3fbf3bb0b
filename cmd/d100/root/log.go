package root

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/ui"
)

func newLogCmd(g *globals) *cobra.Command {
	var date string
	var writeID string

	cmd := &cobra.Command{
		Use:   "log <goal> <value>",
		Short: "Record today's (or --date's) value for a goal",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("goal and value are required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := goals.ParseKey(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("value %q is not a number", args[1])
			}

			return withService(cmd.Context(), g, func(svc *app.Service) error {
				res, err := svc.SetValue(cmd.Context(), app.SetRequest{
					WriteID: writeID,
					Date:    date,
					Key:     key,
					Value:   value,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if res.Duplicate {
					fmt.Fprintln(out, ui.Muted.Render("already recorded (write "+writeID+")"))
				} else {
					fmt.Fprintln(out, ui.Heading(ui.IconDone, fmt.Sprintf("%s = %v on %s", key, value, res.Date)))
				}
				fmt.Fprintln(out, ui.LabelValue("Score", ui.BandText(res.Score)), ui.ScoreBar(res.Score))
				if res.Score != res.Previous {
					fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("was %d", res.Previous)))
				}
				if t := ui.TransitionText(res.Transition); t != "" {
					fmt.Fprintln(out, t)
				}
				if !res.Queued {
					fmt.Fprintln(out, ui.Warn.Render(ui.IconWarn+" value kept in memory only; persistence queue was full"))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Day to record (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&writeID, "id", "", "Idempotency key; repeating it records nothing")
	return cmd
}
