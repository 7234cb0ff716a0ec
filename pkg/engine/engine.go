package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
	"github.com/openfroyo/conformance/pkg/report"
	"github.com/openfroyo/conformance/pkg/rules"
)

// Extractor builds the structural view of an artifact.
type Extractor interface {
	Extract(ctx context.Context, a *artifact.Artifact) (extract.View, error)
}

// Engine evaluates rules against artifacts.
type Engine struct {
	extractor Extractor
	logger    zerolog.Logger
}

// New creates an engine.
func New(extractor Extractor, logger zerolog.Logger) *Engine {
	return &Engine{
		extractor: extractor,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// Evaluate extracts a once and evaluates each rule against the view, in the
// given order. Rules are independent: a Fail or Error never stops the rules
// after it. If extraction fails every rule receives an Error verdict carrying
// the extraction cause.
func (e *Engine) Evaluate(ctx context.Context, a *artifact.Artifact, rs []rules.Rule) []report.Result {
	view, err := e.extractor.Extract(ctx, a)
	if err != nil {
		e.logger.Warn().Err(err).Str("artifact", a.Name()).Msg("extraction failed")
		return e.Errored(err, rs)
	}

	results := make([]report.Result, len(rs))
	for i, r := range rs {
		v := e.evaluateRule(ctx, r, a, view)
		results[i] = report.NewResult(r, v)

		e.logger.Debug().
			Str("rule", r.ID).
			Str("status", string(v.Status)).
			Str("reason", v.Reason).
			Msg("rule evaluated")
	}
	return results
}

// Errored returns an Error verdict for every rule, with err as the cause.
func (e *Engine) Errored(err error, rs []rules.Rule) []report.Result {
	v := rules.ErrorFrom(err)
	results := make([]report.Result, len(rs))
	for i, r := range rs {
		results[i] = report.NewResult(r, v)
	}
	return results
}

func (e *Engine) evaluateRule(ctx context.Context, r rules.Rule, a *artifact.Artifact, view extract.View) (v rules.Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			err := artifact.NewInternalError(fmt.Sprintf("rule panicked: %v", rec), nil).
				WithArtifact(a.Name()).
				WithRule(r.ID)
			e.logger.Error().Err(err).Msg("rule panicked")
			v = rules.ErrorFrom(err)
		}
	}()

	if r.Kind != a.Kind() {
		return rules.ErrorFrom(artifact.NewInternalError(
			fmt.Sprintf("rule expects %s, artifact is %s", r.Kind, a.Kind()), nil).WithRule(r.ID))
	}

	return r.Check(ctx, view)
}
