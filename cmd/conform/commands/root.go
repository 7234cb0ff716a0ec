package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrNonConformant is returned when a run completes with any Fail or Error
// verdict. The report has already been written; callers only set the exit
// status.
var ErrNonConformant = errors.New("deployment artifacts are not conformant")

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string

	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	buildVersion = version

	rootCmd := &cobra.Command{
		Use:   "conform",
		Short: "conform - deployment configuration conformance validator",
		Long: `conform inspects the deployment artifacts of a project and reports,
rule by rule, whether they conform to the expected shape:

  - nginx.conf and supervisord.conf
  - docker-compose.yml and docker-compose.prod.yml
  - Dockerfile
  - entrypoint.sh, deploy.sh, multi_user_manager.sh,
    update_and_redeploy.sh and publish_all.sh

Every rule yields PASS, FAIL or ERROR. The exit status is 0 only when every
rule passes.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: <root>/conform.cue when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newRulesCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
