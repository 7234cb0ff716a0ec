package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/config"
	"github.com/openfroyo/conformance/pkg/engine"
	"github.com/openfroyo/conformance/pkg/extract"
	"github.com/openfroyo/conformance/pkg/report"
	"github.com/openfroyo/conformance/pkg/rules"
	"github.com/openfroyo/conformance/pkg/runner"
	"github.com/openfroyo/conformance/pkg/stores"
	"github.com/openfroyo/conformance/pkg/telemetry"
	"github.com/openfroyo/conformance/pkg/transports/ssh"
)

// runFlags are the flags shared by check and watch. Only flags the user set
// override the configuration file.
type runFlags struct {
	format      string
	parallelism int
	shell       string
	history     bool
	metricsFile string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "report format (text, markdown, json)")
	cmd.Flags().IntVarP(&f.parallelism, "parallelism", "p", runner.DefaultParallelism, "artifacts evaluated at once (1 = sequential)")
	cmd.Flags().StringVar(&f.shell, "shell", "bash", "interpreter used for script syntax checks")
	cmd.Flags().BoolVar(&f.history, "history", false, "persist the run to the history database")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after each run")
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = f.format
	}
	if flags.Changed("parallelism") {
		cfg.Parallelism = f.parallelism
	}
	if flags.Changed("shell") {
		cfg.Shell = f.shell
	}
	if flags.Changed("history") {
		cfg.History.Enabled = f.history
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
}

// loadConfig resolves the configuration for a project root and applies the
// persistent flags. Callers apply their own flags and then call validate.
func loadConfig(args []string) (*config.Config, *config.Loader, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	loader, err := config.NewLoader()
	if err != nil {
		return nil, nil, err
	}

	cfg, _, err := loader.Resolve(configPath, root)
	if err != nil {
		return nil, nil, err
	}
	if len(args) > 0 {
		cfg.Root = root
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, loader, nil
}

// session holds everything a command needs for one or more runs.
type session struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	catalog   *rules.Catalog
	layout    *artifact.Layout
	logger    zerolog.Logger
	closers   []func() error
}

func newSession(cfg *config.Config, loader *config.Loader) (*session, error) {
	if err := loader.Validate(cfg); err != nil {
		return nil, err
	}
	if _, err := report.ParseFormat(cfg.Format); err != nil {
		return nil, err
	}

	tel, err := telemetry.New(cfg.Telemetry(buildVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}

	catalog, err := rules.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to build rule catalog: %w", err)
	}

	return &session{
		cfg:       cfg,
		telemetry: tel,
		catalog:   catalog,
		layout:    layout,
		logger:    tel.Logger,
	}, nil
}

// source opens the artifact source: the remote target when one is
// configured, the local root otherwise.
func (s *session) source(ctx context.Context) (artifact.Source, error) {
	if s.cfg.Remote.Target == "" {
		// A missing root still yields a full report of missing artifacts.
		info, err := os.Stat(s.cfg.Root)
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.logger.Warn().Str("root", s.cfg.Root).Msg("Project root does not exist")
		case err != nil:
			return nil, fmt.Errorf("failed to open project root: %w", err)
		case !info.IsDir():
			return nil, fmt.Errorf("project root %s is not a directory", s.cfg.Root)
		}
		return artifact.NewDirSource(s.cfg.Root), nil
	}

	target, err := ssh.ParseTarget(s.cfg.Remote.Target)
	if err != nil {
		return nil, err
	}

	sshCfg := ssh.DefaultConfig(target.Host, target.User)
	sshCfg.Port = s.cfg.Remote.Port
	if target.Port != 0 {
		sshCfg.Port = target.Port
	}
	if s.cfg.Remote.Identity != "" {
		sshCfg.PrivateKeyPath = s.cfg.Remote.Identity
	}
	if s.cfg.Remote.KnownHosts != "" {
		sshCfg.KnownHostsPath = s.cfg.Remote.KnownHosts
	}

	client, err := ssh.NewClient(sshCfg, s.logger)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	s.closers = append(s.closers, client.Close)

	return artifact.NewRemoteSource(client, target), nil
}

// runner builds a runner over src with the bash syntax checker.
func (s *session) runner(src artifact.Source) (*runner.Runner, error) {
	checker := extract.NewBashChecker(s.cfg.Shell)
	eng := engine.New(extract.New(checker, s.logger), s.logger)

	return runner.New(runner.Config{
		Source:      src,
		Layout:      s.layout,
		Catalog:     s.catalog,
		Engine:      eng,
		Telemetry:   s.telemetry,
		Parallelism: s.cfg.Parallelism,
	})
}

// openStore opens the history database; the session closes it.
func (s *session) openStore(ctx context.Context) (*stores.SQLiteStore, error) {
	store, err := openHistory(ctx, s.cfg.History.Path)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store.Close)
	return store, nil
}

// openHistory opens and migrates the history database at path.
func openHistory(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// publish renders a report to stdout, stores it when history is enabled, and
// writes the metrics textfile.
func (s *session) publish(ctx context.Context, cmd *cobra.Command, rep *report.RunReport, store stores.Store) error {
	format, err := report.ParseFormat(s.cfg.Format)
	if err != nil {
		return err
	}
	if err := report.Render(cmd.OutOrStdout(), rep, format); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	var errs []error
	if store != nil {
		if err := store.SaveRun(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("failed to save run history: %w", err))
		}
	}
	if err := s.telemetry.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
	}
	return errors.Join(errs...)
}

// close releases connections and stops telemetry. It runs after the command
// context may have been cancelled, so it uses its own deadline.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release resource")
		}
	}
	if err := s.telemetry.Tracer.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to shut down tracer")
	}
}
