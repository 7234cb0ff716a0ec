package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// View is the structural view of a single artifact. Concrete views are
// *ProxyView, *SectionView, *ManifestView, *RecipeView and *ScriptView.
type View interface {
	// Artifact returns the snapshot the view was extracted from.
	Artifact() *artifact.Artifact
}

// base carries the artifact every view is extracted from.
type base struct {
	artifact *artifact.Artifact
}

func (b base) Artifact() *artifact.Artifact { return b.artifact }

// Extractor dispatches an artifact to the extractor for its kind.
type Extractor struct {
	checker SyntaxChecker
	logger  zerolog.Logger
}

// New creates an extractor. The checker is used for script artifacts only.
func New(checker SyntaxChecker, logger zerolog.Logger) *Extractor {
	return &Extractor{
		checker: checker,
		logger:  logger.With().Str("component", "extract").Logger(),
	}
}

// Extract builds the structural view for a. A non-nil error is always a
// classified *artifact.ConformError and means no rule bound to a can be
// evaluated.
func (e *Extractor) Extract(ctx context.Context, a *artifact.Artifact) (view View, err error) {
	defer func() {
		if r := recover(); r != nil {
			view = nil
			err = artifact.NewInternalError(fmt.Sprintf("extractor panic: %v", r), nil).WithArtifact(a.Name())
		}
	}()

	switch a.Kind() {
	case artifact.KindProxyConfig:
		view = ExtractProxy(a)
	case artifact.KindSupervisorConfig:
		view = ExtractSections(a)
	case artifact.KindManifest:
		view, err = ExtractManifest(a)
	case artifact.KindRecipe:
		view = ExtractRecipe(a)
	case artifact.KindScript:
		view, err = ExtractScript(ctx, a, e.checker)
	default:
		return nil, artifact.NewInternalError(fmt.Sprintf("no extractor for kind %q", a.Kind()), nil).WithArtifact(a.Name())
	}

	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("artifact", a.Name()).
		Str("kind", string(a.Kind())).
		Msg("extracted structural view")
	return view, nil
}
