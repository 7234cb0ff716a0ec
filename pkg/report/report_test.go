package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/rules"
)

func sampleResults() []Result {
	return []Result{
		{RuleID: "proxy.server-block", Artifact: artifact.NginxConf, Kind: artifact.KindProxyConfig, Verdict: rules.Pass()},
		{RuleID: "proxy.braces-balanced", Artifact: artifact.NginxConf, Kind: artifact.KindProxyConfig, Verdict: rules.Fail("unbalanced braces: 3 open, 2 close")},
		{RuleID: "recipe.from", Artifact: artifact.Dockerfile, Kind: artifact.KindRecipe, Verdict: rules.Errorf("missing: Dockerfile not found")},
		{RuleID: "recipe.run", Artifact: artifact.Dockerfile, Kind: artifact.KindRecipe, Verdict: rules.Errorf("missing: Dockerfile not found")},
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		results  []Result
		want     Summary
		wantExit int
	}{
		{name: "empty", results: nil, want: Summary{}, wantExit: 0},
		{name: "all pass", results: sampleResults()[:1], want: Summary{Total: 1, Passed: 1}, wantExit: 0},
		{name: "mixed", results: sampleResults(), want: Summary{Total: 4, Passed: 1, Failed: 1, Errored: 2}, wantExit: 1},
		{name: "errors only", results: sampleResults()[2:], want: Summary{Total: 2, Errored: 2}, wantExit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Aggregate(tt.results)
			if diff := cmp.Diff(tt.want, r.Summary); diff != "" {
				t.Errorf("summary mismatch (-want +got):\n%s", diff)
			}
			if got := r.ExitCode(); got != tt.wantExit {
				t.Errorf("ExitCode() = %d, want %d", got, tt.wantExit)
			}
		})
	}
}

func TestAggregateCopiesResults(t *testing.T) {
	results := sampleResults()
	r := Aggregate(results)
	results[0].RuleID = "mutated"

	if r.Results[0].RuleID != "proxy.server-block" {
		t.Errorf("report shares the caller's slice")
	}
}

func TestAggregateDeterministic(t *testing.T) {
	a := Aggregate(sampleResults())
	b := Aggregate(sampleResults())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}
}

func TestWithMeta(t *testing.T) {
	r := Aggregate(sampleResults())
	m := Meta{ID: "run-1", Root: "/srv/app", StartedAt: time.Unix(0, 0).UTC(), Duration: time.Second}

	withMeta := r.WithMeta(m)
	if withMeta.Meta != m {
		t.Errorf("Meta = %+v, want %+v", withMeta.Meta, m)
	}
	if r.Meta != (Meta{}) {
		t.Errorf("WithMeta modified the original report")
	}
	if got := len(withMeta.ByArtifact(artifact.Dockerfile)); got != 2 {
		t.Errorf("ByArtifact(Dockerfile) returned %d results, want 2", got)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Aggregate(sampleResults()), FormatText); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Deployment Conformance Report",
		"proxy.braces-balanced",
		"unbalanced braces: 3 open, 2 close",
		"Tests run: 4",
		"Successes: 1",
		"Failures: 1",
		"Errors: 2",
		"Some checks failed.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}

	// Results keep catalog order.
	if strings.Index(out, "proxy.server-block") > strings.Index(out, "recipe.run") {
		t.Errorf("results rendered out of order:\n%s", out)
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Aggregate(sampleResults()[:1]), FormatMarkdown); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "# Deployment Conformance Report") {
		t.Errorf("markdown report has no title:\n%s", out)
	}
	if !strings.Contains(out, "| proxy.server-block |") {
		t.Errorf("markdown report has no result row:\n%s", out)
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	r := Aggregate(sampleResults())
	if err := Render(&buf, r.WithMeta(Meta{ID: "run-1"}), FormatJSON); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded RunReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if diff := cmp.Diff(r, &decoded); diff != "" {
		t.Errorf("decoded report mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderIgnoresRunMeta(t *testing.T) {
	first := Meta{ID: "run-1", Root: "/srv/app", StartedAt: time.Unix(0, 0).UTC(), Duration: time.Second}
	second := Meta{ID: "run-2", Root: "/srv/app", StartedAt: time.Unix(60, 0).UTC(), Duration: 3 * time.Second}

	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			var a, b bytes.Buffer
			if err := Render(&a, Aggregate(sampleResults()).WithMeta(first), f); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if err := Render(&b, Aggregate(sampleResults()).WithMeta(second), f); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if diff := cmp.Diff(a.String(), b.String()); diff != "" {
				t.Errorf("renders of identical results differ (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) succeeded")
	}
}
