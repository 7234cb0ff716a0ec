package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/conformance/pkg/stores"
)

func newCheckCommand() *cobra.Command {
	var (
		flags      runFlags
		remote     string
		identity   string
		knownHosts string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "check [root]",
		Short: "Check the deployment artifacts of a project",
		Long: `Run the full rule catalog once against the artifacts under root and
print the report to stdout.

Artifacts are read from their conventional locations relative to root:
nginx.conf, supervisord.conf, docker-compose.yml, docker-compose.prod.yml,
Dockerfile, entrypoint.sh, deploy.sh, multi_user_manager.sh,
update_and_redeploy.sh and publish_all.sh. A missing artifact turns every
rule bound to it into an ERROR.

With --remote the artifacts are read over SFTP from user@host:/path instead.`,
		Example: `  # Check the current directory
  conform check

  # Markdown report, sequential evaluation
  conform check ./deploy --format markdown --parallelism 1

  # Keep the run in history and export metrics for node_exporter
  conform check --history --metrics-file /var/lib/node_exporter/conform.prom

  # Check a deployed host
  conform check --remote deploy@web1:/srv/app --identity ~/.ssh/deploy_ed25519`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, loader, err := loadConfig(args)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if cmd.Flags().Changed("remote") {
				cfg.Remote.Target = remote
			}
			if cmd.Flags().Changed("identity") {
				cfg.Remote.Identity = identity
			}
			if cmd.Flags().Changed("known-hosts") {
				cfg.Remote.KnownHosts = knownHosts
			}
			if cmd.Flags().Changed("port") {
				cfg.Remote.Port = port
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

			rep, err := r.Run(ctx)
			if err != nil {
				return err
			}

			if err := s.publish(ctx, cmd, rep, store); err != nil {
				return err
			}

			if !rep.Conformant() {
				return ErrNonConformant
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&remote, "remote", "", "read artifacts from user@host[:port]:/path over SFTP")
	cmd.Flags().StringVarP(&identity, "identity", "i", "", "private key for --remote")
	cmd.Flags().StringVar(&knownHosts, "known-hosts", "", "known_hosts file for --remote")
	cmd.Flags().IntVar(&port, "port", 22, "SSH port for --remote")

	return cmd
}
