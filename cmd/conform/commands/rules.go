package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/report"
	"github.com/openfroyo/conformance/pkg/rules"
)

type ruleEntry struct {
	ID          string        `json:"id"`
	Artifact    string        `json:"artifact"`
	Kind        artifact.Kind `json:"kind"`
	Description string        `json:"description"`
}

func newRulesCommand() *cobra.Command {
	var (
		format      string
		artifactArg string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalog",
		Long: `List every rule in the built-in catalog, in evaluation order, with the
artifact it is bound to.`,
		Example: `  # List all rules
  conform rules

  # Only the Dockerfile rules, as JSON
  conform rules --artifact Dockerfile --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			catalog, err := rules.Builtin()
			if err != nil {
				return fmt.Errorf("failed to build rule catalog: %w", err)
			}

			var entries []ruleEntry
			for _, r := range catalog.Rules() {
				if artifactArg != "" && r.Artifact != artifactArg {
					continue
				}
				entries = append(entries, ruleEntry{
					ID:          r.ID,
					Artifact:    r.Artifact,
					Kind:        r.Kind,
					Description: r.Description,
				})
			}
			if len(entries) == 0 {
				return fmt.Errorf("no rules bound to artifact %q", artifactArg)
			}

			return writeRules(cmd.OutOrStdout(), entries, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, markdown, json)")
	cmd.Flags().StringVarP(&artifactArg, "artifact", "a", "", "only list rules bound to this artifact")

	return cmd
}

func writeRules(w io.Writer, entries []ruleEntry, f report.Format) error {
	if f == report.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Rule", "Artifact", "Kind", "Description"})
	for i, e := range entries {
		t.AppendRow(table.Row{i + 1, e.ID, e.Artifact, e.Kind, e.Description})
	}

	var out string
	if f == report.FormatMarkdown {
		out = t.RenderMarkdown()
	} else {
		t.SetStyle(table.StyleLight)
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d rules", len(entries))})
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}
