// Package runner orchestrates a conformance run: it reads every artifact the
// catalog references, evaluates the artifact's rules, and folds the verdicts
// into a report.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/engine"
	"github.com/openfroyo/conformance/pkg/report"
	"github.com/openfroyo/conformance/pkg/rules"
	"github.com/openfroyo/conformance/pkg/telemetry"
)

// DefaultParallelism is the number of artifacts evaluated at once.
const DefaultParallelism = 4

// Config holds the collaborators of a Runner.
type Config struct {
	Source    artifact.Source
	Layout    *artifact.Layout
	Catalog   *rules.Catalog
	Engine    *engine.Engine
	Telemetry *telemetry.Telemetry

	// Parallelism bounds concurrent artifact evaluation. 1 is fully
	// sequential; 0 selects DefaultParallelism.
	Parallelism int
}

// Runner executes conformance runs. A Runner may be reused; every Run reads
// fresh artifact snapshots.
type Runner struct {
	source      artifact.Source
	layout      *artifact.Layout
	catalog     *rules.Catalog
	engine      *engine.Engine
	telemetry   *telemetry.Telemetry
	parallelism int
	logger      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("artifact source is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("rule catalog is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Parallelism < 0 {
		return nil, fmt.Errorf("parallelism must not be negative, got %d", cfg.Parallelism)
	}
	if cfg.Layout == nil {
		cfg.Layout = artifact.DefaultLayout()
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Nop()
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = DefaultParallelism
	}

	for _, name := range cfg.Catalog.Artifacts() {
		if _, ok := cfg.Layout.Lookup(name); !ok {
			return nil, fmt.Errorf("catalog references artifact %q missing from layout", name)
		}
	}

	return &Runner{
		source:      cfg.Source,
		layout:      cfg.Layout,
		catalog:     cfg.Catalog,
		engine:      cfg.Engine,
		telemetry:   cfg.Telemetry,
		parallelism: cfg.Parallelism,
		logger:      cfg.Telemetry.Logger.With().Str("component", "runner").Logger(),
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// Run evaluates the whole catalog once. Results are written into slots keyed
// by catalog position, so the report order never depends on scheduling.
// Artifacts not started before ctx is cancelled receive cancelled Error
// verdicts; Run itself only fails on internal faults.
func (r *Runner) Run(ctx context.Context) (*report.RunReport, error) {
	runID := r.newID()
	started := r.now()
	root := r.source.Describe()

	ctx, span := r.telemetry.Tracer.StartRunSpan(ctx, runID, root)
	defer span.End()

	logger := r.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Str("root", root).
		Int("rules", r.catalog.Len()).
		Int("parallelism", r.parallelism).
		Msg("Starting conformance run")

	all := r.catalog.Rules()
	results := make([]report.Result, len(all))

	var g errgroup.Group
	g.SetLimit(r.parallelism)

	for _, name := range r.catalog.Artifacts() {
		d, _ := r.layout.Lookup(name)
		positions := r.catalog.Positions(name)
		bound := make([]rules.Rule, len(positions))
		for i, pos := range positions {
			bound[i] = all[pos]
		}

		g.Go(func() error {
			var out []report.Result
			if ctx.Err() != nil {
				out = r.engine.Errored(artifact.NewCancelledError("run cancelled", nil).WithArtifact(d.Name), bound)
			} else {
				out = r.evaluateArtifact(ctx, d, bound)
			}
			for i, pos := range positions {
				results[pos] = out[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("run %s failed: %w", runID, err)
	}

	duration := r.now().Sub(started)
	rep := report.Aggregate(results).WithMeta(report.Meta{
		ID:        runID,
		Root:      root,
		StartedAt: started,
		Duration:  duration,
	})

	r.telemetry.Metrics.RecordRun(rep.Conformant(), duration)
	span.SetAttributes(
		telemetry.AttrPassed.Int(rep.Passed),
		telemetry.AttrFailed.Int(rep.Failed),
		telemetry.AttrErrored.Int(rep.Errored),
	)
	telemetry.RecordSuccess(span)

	logger.Info().
		Int("total", rep.Total).
		Int("passed", rep.Passed).
		Int("failed", rep.Failed).
		Int("errored", rep.Errored).
		Dur("duration", duration).
		Msg("Conformance run completed")

	return rep, nil
}

// evaluateArtifact reads one artifact and evaluates its rules. A read
// failure becomes an Error verdict for each bound rule.
func (r *Runner) evaluateArtifact(ctx context.Context, d artifact.Descriptor, bound []rules.Rule) []report.Result {
	ctx, span := r.telemetry.Tracer.StartArtifactSpan(ctx, d.Name, string(d.Kind))
	defer span.End()

	started := r.now()

	var out []report.Result
	a, err := r.source.Read(ctx, d)
	if err != nil {
		r.logger.Warn().Err(err).Str("artifact", d.Name).Msg("Artifact unavailable")
		telemetry.RecordError(span, err)
		out = r.engine.Errored(err, bound)
	} else {
		out = r.engine.Evaluate(ctx, a, bound)
		telemetry.RecordSuccess(span)
	}

	r.telemetry.Metrics.RecordArtifact(d.Name, r.now().Sub(started))
	for _, res := range out {
		r.telemetry.Metrics.RecordVerdict(d.Name, string(res.Verdict.Status))
	}
	return out
}
