package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openfroyo/conformance/pkg/report"
	"github.com/openfroyo/conformance/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		offset int
		format string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show stored conformance runs",
		Long: `List runs recorded with "conform check --history", newest first, or
print the full report of one stored run.`,
		Example: `  # Last 10 runs
  conform history

  # Re-render a stored run as markdown
  conform history 3f0c2a9e-5d1b-4c8e-9a57-1b2f3c4d5e6f --format markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			if dbPath == "" {
				cfg, _, err := loadConfig(nil)
				if err != nil {
					return err
				}
				dbPath = cfg.History.Path
			}

			store, err := openHistory(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				rep, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				return report.Render(cmd.OutOrStdout(), rep, f)
			}

			runs, err := store.ListRuns(ctx, limit, offset)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs, f)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, markdown, json)")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database (default: history.path from config)")

	return cmd
}

func writeRuns(w io.Writer, runs []*stores.RunRecord, f report.Format) error {
	if f == report.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Run", "Started", "Root", "Total", "Passed", "Failed", "Errored", "Result"})
	for _, r := range runs {
		result := "conformant"
		if !r.Conformant {
			result = "non-conformant"
		}
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Root,
			r.Total,
			r.Passed,
			r.Failed,
			r.Errored,
			result,
		})
	}

	var out string
	if f == report.FormatMarkdown {
		out = t.RenderMarkdown()
	} else {
		t.SetStyle(table.StyleLight)
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}
