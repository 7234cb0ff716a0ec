package config

import (
	"fmt"
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/telemetry"
)

// Config is the complete configuration of a conformance run.
type Config struct {
	// Root is the local project directory holding the artifacts.
	Root string `json:"root" validate:"required"`

	// Paths overrides the location of individual artifacts, keyed by
	// logical name, relative to Root.
	Paths map[string]string `json:"paths,omitempty" validate:"dive,keys,required,endkeys,required"`

	// Parallelism bounds how many artifacts are evaluated at once.
	Parallelism int `json:"parallelism" validate:"min=1,max=64"`

	// Shell is the interpreter used for script syntax checks.
	Shell string `json:"shell" validate:"required"`

	// Format is the report format.
	Format string `json:"format" validate:"oneof=text markdown json"`

	History HistoryConfig `json:"history"`
	Metrics MetricsConfig `json:"metrics"`
	Tracing TracingConfig `json:"tracing"`
	Logging LoggingConfig `json:"logging"`
	Remote  RemoteConfig  `json:"remote"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path" validate:"required_if=Enabled true"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Textfile string `json:"textfile"`
	Listen   string `json:"listen" validate:"omitempty,hostname_port"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled  bool   `json:"enabled"`
	Exporter string `json:"exporter" validate:"oneof=stdout otlp"`
	Endpoint string `json:"endpoint" validate:"required_if=Exporter otlp"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" validate:"oneof=trace debug info warn error"`
	Format string `json:"format" validate:"oneof=console json"`
}

// RemoteConfig selects a project root on a remote host.
type RemoteConfig struct {
	// Target is user@host[:port]:/path. Empty means the local Root.
	Target     string `json:"target"`
	Identity   string `json:"identity"`
	KnownHosts string `json:"known_hosts"`
	Port       int    `json:"port" validate:"min=1,max=65535"`
}

// ValidationError describes one configuration problem.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// LoadError collects every problem found while loading a configuration.
type LoadError struct {
	Errors []ValidationError
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.String()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Root:        ".",
		Paths:       map[string]string{},
		Parallelism: 4,
		Shell:       "bash",
		Format:      "text",
		History: HistoryConfig{
			Path: ".conform/history.db",
		},
		Tracing: TracingConfig{
			Exporter: "stdout",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Remote: RemoteConfig{
			Port: 22,
		},
	}
}

// Layout returns the default artifact layout with the configured path
// overrides applied.
func (c *Config) Layout() (*artifact.Layout, error) {
	layout, err := artifact.DefaultLayout().WithPaths(c.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to apply artifact paths: %w", err)
	}
	return layout, nil
}

// Telemetry maps the run configuration onto telemetry settings.
func (c *Config) Telemetry(version string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version
	tc.Logging.Level = c.Logging.Level
	tc.Logging.Format = c.Logging.Format
	tc.Tracing.Enabled = c.Tracing.Enabled
	tc.Tracing.Exporter = c.Tracing.Exporter
	tc.Tracing.Endpoint = c.Tracing.Endpoint
	tc.Metrics.Textfile = c.Metrics.Textfile
	tc.Metrics.ListenAddress = c.Metrics.Listen
	return tc
}
