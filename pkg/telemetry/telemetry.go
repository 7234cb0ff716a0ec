package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Telemetry bundles the logger, tracer and metrics of one process.
type Telemetry struct {
	Logger  zerolog.Logger
	Tracer  *Tracer
	Metrics *Metrics
	config  *Config
}

// New builds every telemetry component from cfg.
func New(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		config:  cfg,
	}, nil
}

// Nop returns telemetry that records nothing.
func Nop() *Telemetry {
	tracer, _ := NewTracer(TracingConfig{}, "conform", "test")
	metrics, _ := NewMetrics(MetricsConfig{})
	return &Telemetry{
		Logger:  zerolog.Nop(),
		Tracer:  tracer,
		Metrics: metrics,
		config:  DefaultConfig(),
	}
}

// Flush writes the metrics textfile, if one is configured.
func (t *Telemetry) Flush() error {
	if t.config.Metrics.Textfile == "" || t.Metrics.Registry() == nil {
		return nil
	}
	return t.Metrics.WriteTextfile(t.config.Metrics.Textfile)
}

// Shutdown flushes metrics and stops the tracer.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.Flush(), t.Tracer.Shutdown(ctx))
}
