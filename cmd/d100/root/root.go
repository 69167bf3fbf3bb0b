package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/defend100/internal/config"
	"github.com/okian/defend100/internal/ui"
)

const Version = "0.1.0"

// globals holds the persistent flags.
type globals struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "d100",
		Short:         "defend100 integrity score tracker",
		Long:          "d100 records daily habit values and scores each day against weighted goals.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.configPath != "" {
				return os.Setenv(config.EnvPrefix+"CONFIG", g.configPath)
			}
			return nil
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file (defaults to $"+config.EnvPrefix+"CONFIG)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log service activity to stderr")

	cmd.AddCommand(
		newLogCmd(g),
		newScoreCmd(g),
		newHistoryCmd(g),
		newRankCmd(g),
		newGoalsCmd(g),
		newAuditCmd(g),
		newProfileCmd(g),
		newSeedCmd(g),
	)
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		stop()
		os.Exit(1)
	}
}
