package root

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/seed"
	"github.com/okian/defend100/internal/ui"
)

func newSeedCmd(g *globals) *cobra.Command {
	var (
		days    int
		profile string
		rngSeed int64
		end     string
		url     string
		workers int
		timeout time.Duration
		verify  bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the history with synthetic days",
		Long: "seed generates a reproducible history for a simulated user. Without --url the samples are\n" +
			"written to the configured store; with --url they are posted to a running API. Re-running\n" +
			"with the same flags records nothing new.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := seed.ParseProfile(profile)
			if err != nil {
				return err
			}
			cfg := &seed.Config{
				Days:    days,
				End:     progress.DateKey(end),
				Profile: p,
				Seed:    rngSeed,
				Workers: workers,
				BaseURL: url,
				Timeout: timeout,
			}

			apply := func(target interface {
				seed.Target
				seed.Reader
			}) error {
				if cfg.End == "" {
					cfg.End = progress.DateKeyOf(time.Now(), time.Local)
				}
				samples, err := seed.Generate(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				stats, err := seed.Submit(cmd.Context(), target, samples, cfg.Workers)
				if stats != nil {
					printSeedStats(cmd, cfg, stats)
				}
				if err != nil || !verify {
					return err
				}
				mismatches, err := seed.Verify(cmd.Context(), target, samples)
				for _, m := range mismatches {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconWarn+" "+m.String()))
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconDone+" verified"))
				return nil
			}

			if url != "" {
				return apply(seed.NewHTTPTarget(url, timeout))
			}
			return withService(cmd.Context(), g, func(svc *app.Service) error {
				if cfg.End == "" {
					cfg.End = svc.Today()
				}
				return apply(seed.NewLocalTarget(svc))
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Number of days to generate")
	cmd.Flags().StringVar(&profile, "profile", string(seed.ProfileMixed), "Simulated user: disciplined, average, struggling or mixed")
	cmd.Flags().Int64Var(&rngSeed, "seed", 1, "Random seed; equal seeds generate equal samples")
	cmd.Flags().StringVar(&end, "end", "", "Last generated day (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&url, "url", "", "Base URL of a running API, e.g. http://localhost:9080")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent submitters")
	cmd.Flags().BoolVar(&verify, "verify", true, "Read every seeded day back and compare")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	return cmd
}

func printSeedStats(cmd *cobra.Command, cfg *seed.Config, s *seed.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Heading(ui.IconSparkle, fmt.Sprintf("Seeded %d %s days ending %s", cfg.Days, cfg.Profile, cfg.End)))
	fmt.Fprintln(out, ui.LabelValue("Samples", s.Generated))
	fmt.Fprintln(out, ui.LabelValue("Recorded", ui.Good.Render(fmt.Sprint(s.Successful))))
	fmt.Fprintln(out, ui.LabelValue("Duplicates", ui.Muted.Render(fmt.Sprint(s.Duplicate))))
	if s.Failed > 0 {
		fmt.Fprintln(out, ui.LabelValue("Failed", ui.Bad.Render(fmt.Sprint(s.Failed))))
	}
	fmt.Fprintln(out, ui.Muted.Render(s.Duration.Round(time.Millisecond).String()))
}
