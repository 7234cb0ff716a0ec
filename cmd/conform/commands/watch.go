package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/conformance/pkg/report"
	"github.com/openfroyo/conformance/pkg/runner"
	"github.com/openfroyo/conformance/pkg/stores"
)

func newWatchCommand() *cobra.Command {
	var (
		flags    runFlags
		listen   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Re-check the artifacts whenever they change",
		Long: `Run the rule catalog once, then again each time an artifact under root
is written, created, removed or renamed. Bursts of changes are debounced.

With --listen the Prometheus metrics of every run are served on /metrics.
Watch mode works on local roots only.`,
		Example: `  # Watch the current directory
  conform watch

  # Serve metrics while watching
  conform watch ./deploy --listen :9464`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, loader, err := loadConfig(args)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if cmd.Flags().Changed("listen") {
				cfg.Metrics.Listen = listen
			}
			if cfg.Remote.Target != "" {
				return fmt.Errorf("watch mode does not support remote targets")
			}

			s, err := newSession(cfg, loader)
			if err != nil {
				return err
			}
			defer s.close()

			var store stores.Store
			if cfg.History.Enabled {
				sqlite, err := s.openStore(ctx)
				if err != nil {
					return err
				}
				store = sqlite
			}

			src, err := s.source(ctx)
			if err != nil {
				return err
			}
			r, err := s.runner(src)
			if err != nil {
				return err
			}

			w, err := runner.NewWatcher(r, cfg.Root, s.layout, debounce, func(rep *report.RunReport, runErr error) {
				if runErr != nil {
					return
				}
				if err := s.publish(ctx, cmd, rep, store); err != nil {
					s.logger.Error().Err(err).Msg("Failed to publish report")
				}
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return w.Run(gctx)
			})
			if cfg.Metrics.Listen != "" {
				g.Go(func() error {
					s.logger.Info().Str("address", cfg.Metrics.Listen).Msg("Serving metrics")
					return s.telemetry.Metrics.Serve(gctx, cfg.Metrics.Listen)
				})
			}
			return g.Wait()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&listen, "listen", "", "serve /metrics on this address")
	cmd.Flags().DurationVar(&debounce, "debounce", runner.DefaultDebounce, "quiet period after a change before re-running")

	return cmd
}
