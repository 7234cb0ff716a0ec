package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/openfroyo/conformance/pkg/rules"
)

// Format selects a renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatJSON}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q (want text, markdown or json)", s)
}

const (
	banner     = "======================================================================"
	reasonWrap = 80
)

// Render writes the report to w in the given format.
func Render(w io.Writer, r *RunReport, f Format) error {
	switch f {
	case FormatText:
		return renderText(w, r)
	case FormatMarkdown:
		return renderMarkdown(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

func resultTable(r *RunReport) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rule", "Artifact", "Verdict", "Reason"})
	for _, res := range r.Results {
		t.AppendRow(table.Row{res.RuleID, res.Artifact, verdictLabel(res.Verdict.Status), res.Verdict.Reason})
	}
	return t
}

func renderText(w io.Writer, r *RunReport) error {
	t := resultTable(r)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter},
		{Number: 4, WidthMax: reasonWrap},
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nDeployment Conformance Report\n%s\n", banner, banner)
	if r.Meta.Root != "" {
		fmt.Fprintf(&b, "Root: %s\n", r.Meta.Root)
	}
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s\nSummary\n%s\n", banner, banner)
	fmt.Fprintf(&b, "Tests run: %d\n", r.Total)
	fmt.Fprintf(&b, "Successes: %d\n", r.Passed)
	fmt.Fprintf(&b, "Failures: %d\n", r.Failed)
	fmt.Fprintf(&b, "Errors: %d\n\n", r.Errored)
	if r.Conformant() {
		b.WriteString("All conformance checks passed.\n")
	} else {
		b.WriteString("Some checks failed. See details above.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderMarkdown(w io.Writer, r *RunReport) error {
	var b strings.Builder
	b.WriteString("# Deployment Conformance Report\n\n")
	if r.Meta.Root != "" {
		fmt.Fprintf(&b, "Root: `%s`\n\n", r.Meta.Root)
	}
	b.WriteString(resultTable(r).RenderMarkdown())
	b.WriteString("\n\n## Summary\n\n")

	s := table.NewWriter()
	s.AppendHeader(table.Row{"Total", "Passed", "Failed", "Errored"})
	s.AppendRow(table.Row{r.Total, r.Passed, r.Failed, r.Errored})
	b.WriteString(s.RenderMarkdown())
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func verdictLabel(s rules.Status) string {
	switch s {
	case rules.StatusPass:
		return "PASS"
	case rules.StatusFail:
		return "FAIL"
	default:
		return "ERROR"
	}
}
