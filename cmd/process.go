package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-llm/internal/pipeline"
)

var (
	processManifest    string
	processTickers     []string
	processTypes       []string
	processYears       string
	processConcurrency int
	processDryRun      bool
	processForce       bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process filings from a manifest into LLM artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		descriptors, err := pipeline.LoadManifest(processManifest)
		if err != nil {
			return err
		}

		filter := pipeline.Filter{Tickers: processTickers, Types: processTypes}
		if processYears != "" {
			filter.YearFrom, filter.YearTo, err = parseYearRange(processYears)
			if err != nil {
				return err
			}
		}
		descriptors = filter.Apply(descriptors)
		if len(descriptors) == 0 {
			fmt.Fprintln(os.Stderr, "No filings matched the manifest filters.")
			return nil
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Pipeline.Run(ctx, descriptors, pipeline.RunOptions{
			Concurrency: processConcurrency,
			DryRun:      processDryRun,
			Force:       processForce,
		})
		if err != nil {
			return err
		}

		formatRunReport(os.Stdout, report)
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processManifest, "manifest", "", "filing manifest file, JSON array or JSON Lines (required)")
	processCmd.Flags().StringSliceVar(&processTickers, "tickers", nil, "restrict to these tickers")
	processCmd.Flags().StringSliceVar(&processTypes, "types", nil, "restrict to these filing types (10-K, 10-Q)")
	processCmd.Flags().StringVar(&processYears, "years", "", "restrict to a period-end year or range, e.g. 2023 or 2022-2024")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 0, "concurrent filings (default from config)")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "stop after validation and print would-be artifact paths")
	processCmd.Flags().BoolVar(&processForce, "force", false, "re-publish artifacts that already exist")
	_ = processCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(processCmd)
}

// parseYearRange parses "2023" or "2022-2024" into an inclusive window.
func parseYearRange(s string) (int, int, error) {
	parts := strings.SplitN(s, "-", 2)
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, eris.Errorf("invalid year range %q", s)
	}
	to := from
	if len(parts) == 2 {
		to, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, eris.Errorf("invalid year range %q", s)
		}
	}
	if to < from {
		return 0, 0, eris.Errorf("year range %q ends before it starts", s)
	}
	return from, to, nil
}

// formatRunReport writes the per-filing outcome table and the run summary to w.
func formatRunReport(out io.Writer, report *pipeline.RunReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TICKER\tTYPE\tFILING\tSTATUS\tFACTS\tWARNINGS\tERROR")
	_, _ = fmt.Fprintln(w, "------\t----\t------\t------\t-----\t--------\t-----")

	for _, f := range report.Filings {
		errMsg := f.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			f.Ticker, f.FilingType, f.FilingID, f.Status, f.FactCount, len(f.Warnings), errMsg)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%d filings: %d passed, %d failed (run %s, %.1fs)\n",
		report.Total, report.Passed, report.Failed, truncateID(report.RunID), report.DurationSeconds)

	if report.DryRun {
		_, _ = fmt.Fprintln(out, "\nDry run. Artifacts that would be published:")
		for _, f := range report.Filings {
			if f.LLMPath != "" {
				_, _ = fmt.Fprintf(out, "  %s\n", f.LLMPath)
			}
		}
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
