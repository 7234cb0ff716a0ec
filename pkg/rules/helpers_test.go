package rules

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

type stubChecker struct {
	result extract.SyntaxResult
	err    error
}

func (s stubChecker) Check(context.Context, string) (extract.SyntaxResult, error) {
	return s.result, s.err
}

func validSyntax() stubChecker {
	return stubChecker{result: extract.SyntaxResult{OK: true}}
}

// viewOf extracts text as the named artifact of the default layout.
func viewOf(t *testing.T, name, text string) extract.View {
	t.Helper()
	return viewWith(t, name, text, validSyntax())
}

func viewWith(t *testing.T, name, text string, checker extract.SyntaxChecker) extract.View {
	t.Helper()

	d, ok := artifact.DefaultLayout().Lookup(name)
	if !ok {
		t.Fatalf("unknown artifact %q", name)
	}

	ext := extract.New(checker, zerolog.New(nil).Level(zerolog.Disabled))
	view, err := ext.Extract(context.Background(), artifact.New(d, "testdata/"+name, []byte(text)))
	if err != nil {
		t.Fatalf("Failed to extract %s: %v", name, err)
	}
	return view
}

// evaluate runs every builtin rule bound to name against view.
func evaluate(t *testing.T, name string, view extract.View) map[string]Verdict {
	t.Helper()

	catalog, err := Builtin()
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	all := catalog.Rules()
	out := make(map[string]Verdict)
	for _, pos := range catalog.Positions(name) {
		r := all[pos]
		out[r.ID] = r.Check(context.Background(), view)
	}
	if len(out) == 0 {
		t.Fatalf("no rules bound to %s", name)
	}
	return out
}

func failing(verdicts map[string]Verdict) map[string]Verdict {
	out := make(map[string]Verdict)
	for id, v := range verdicts {
		if !v.IsPass() {
			out[id] = v
		}
	}
	return out
}
