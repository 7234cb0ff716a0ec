// Package report aggregates rule verdicts into a run report and renders it.
package report

import (
	"time"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/rules"
)

// Result is the verdict of one rule, with the rule's identity.
type Result struct {
	RuleID      string        `json:"rule_id"`
	Artifact    string        `json:"artifact"`
	Kind        artifact.Kind `json:"kind"`
	Description string        `json:"description"`
	Verdict     rules.Verdict `json:"verdict"`
}

// NewResult pairs a rule with its verdict.
func NewResult(r rules.Rule, v rules.Verdict) Result {
	return Result{
		RuleID:      r.ID,
		Artifact:    r.Artifact,
		Kind:        r.Kind,
		Description: r.Description,
		Verdict:     v,
	}
}

// Summary holds the verdict counts of a run.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// Meta describes the run that produced a report.
type Meta struct {
	ID        string        `json:"id,omitempty"`
	Root      string        `json:"root,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// RunReport is the outcome of one run. Results are in catalog declaration
// order. A report is never modified after construction. Meta is kept out of
// rendered output so identical runs render identically.
type RunReport struct {
	Meta    Meta     `json:"-"`
	Results []Result `json:"results"`
	Summary
}

// Aggregate folds results into a report. The slice is copied.
func Aggregate(results []Result) *RunReport {
	r := &RunReport{Results: make([]Result, len(results))}
	copy(r.Results, results)

	for _, res := range r.Results {
		r.Total++
		switch res.Verdict.Status {
		case rules.StatusPass:
			r.Passed++
		case rules.StatusFail:
			r.Failed++
		default:
			r.Errored++
		}
	}
	return r
}

// WithMeta returns a copy of the report carrying m.
func (r *RunReport) WithMeta(m Meta) *RunReport {
	out := *r
	out.Meta = m
	return &out
}

// Conformant reports whether every rule passed.
func (r *RunReport) Conformant() bool {
	return r.Failed == 0 && r.Errored == 0
}

// ExitCode returns 0 for a conformant run and 1 otherwise.
func (r *RunReport) ExitCode() int {
	if r.Conformant() {
		return 0
	}
	return 1
}

// ByArtifact returns the results bound to the named artifact.
func (r *RunReport) ByArtifact(name string) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Artifact == name {
			out = append(out, res)
		}
	}
	return out
}
