package root

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/ui"
)

func newGoalsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "List goal configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, func(svc *app.Service) error {
				t := svc.Goals()
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ui.Heading(ui.IconShield, "Goals"))
				for _, c := range t.All() {
					printGoal(cmd, c)
				}
				fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("active weight %d", t.TotalActiveWeight())))
				return nil
			})
		},
	}
	cmd.AddCommand(newGoalsSetCmd(g))
	return cmd
}

func printGoal(cmd *cobra.Command, c goals.Config) {
	fmt.Fprintf(cmd.OutOrStdout(), "- %s %s %v %s, weight %d, %s\n",
		ui.Key.Render(string(c.Key)+":"),
		c.Direction, c.Threshold, c.Unit, c.Weight,
		ui.EnabledText(c.Active),
	)
}

func newGoalsSetCmd(g *globals) *cobra.Command {
	var weight int
	var threshold float64
	var unit string
	var active bool

	cmd := &cobra.Command{
		Use:   "set <goal>",
		Short: "Change weight, threshold, unit or active flag of one goal",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("goal is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := goals.ParseKey(args[0])
			if err != nil {
				return err
			}

			var o goals.Override
			flags := cmd.Flags()
			if flags.Changed("weight") {
				o.Weight = &weight
			}
			if flags.Changed("threshold") {
				o.Threshold = &threshold
			}
			if flags.Changed("unit") {
				o.Unit = &unit
			}
			if flags.Changed("active") {
				o.Active = &active
			}
			if o == (goals.Override{}) {
				return errors.New("nothing to change: pass --weight, --threshold, --unit or --active")
			}

			return withService(cmd.Context(), g, func(svc *app.Service) error {
				c, err := svc.UpdateGoal(cmd.Context(), key, o)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconDone, "Goal updated"))
				printGoal(cmd, c)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&weight, "weight", "w", 0, "Relative weight (positive)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Target (maximize) or limit (minimize)")
	cmd.Flags().StringVarP(&unit, "unit", "u", "", "Display unit")
	cmd.Flags().BoolVarP(&active, "active", "a", true, "Whether the goal counts towards the score")
	return cmd
}
