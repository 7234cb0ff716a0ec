package extract

import (
	"context"
	"testing"

	"github.com/openfroyo/conformance/pkg/artifact"
)

func TestExtractorDispatch(t *testing.T) {
	ex := New(&stubChecker{result: SyntaxResult{OK: true}}, newTestLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		kind artifact.Kind
		text string
		want string
	}{
		{artifact.NginxConf, artifact.KindProxyConfig, "events {}\n", "*extract.ProxyView"},
		{artifact.SupervisordConf, artifact.KindSupervisorConfig, "[supervisord]\n", "*extract.SectionView"},
		{artifact.ComposeDev, artifact.KindManifest, "version: '3'\n", "*extract.ManifestView"},
		{artifact.Dockerfile, artifact.KindRecipe, "FROM alpine\n", "*extract.RecipeView"},
		{artifact.DeployScript, artifact.KindScript, "echo hi\n", "*extract.ScriptView"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newArtifact(tt.name, tt.kind, tt.text)
			view, err := ex.Extract(ctx, a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeOf(view); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if view.Artifact() != a {
				t.Error("expected view to reference its artifact")
			}
		})
	}
}

func TestExtractorErrors(t *testing.T) {
	ex := New(nil, newTestLogger())
	ctx := context.Background()

	_, err := ex.Extract(ctx, newArtifact(artifact.ComposeProd, artifact.KindManifest, "services: [\n"))
	if !artifact.IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}

	_, err = ex.Extract(ctx, newArtifact("unknown", artifact.Kind("ini"), ""))
	if artifact.ClassOf(err) != artifact.ErrorClassInternal {
		t.Errorf("expected internal error for unknown kind, got %v", err)
	}
}

func typeOf(v View) string {
	switch v.(type) {
	case *ProxyView:
		return "*extract.ProxyView"
	case *SectionView:
		return "*extract.SectionView"
	case *ManifestView:
		return "*extract.ManifestView"
	case *RecipeView:
		return "*extract.RecipeView"
	case *ScriptView:
		return "*extract.ScriptView"
	default:
		return "unknown"
	}
}
