package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-llm/internal/docstore"
	"github.com/sells-group/edgar-llm/internal/model"
)

var (
	statusTicker string
	statusType   string
	statusYear   int
	statusLimit  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List published filings from the metadata store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		meta, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer meta.Close()
		if err := meta.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		recs, err := meta.ListFilings(ctx, docstore.Filter{
			Ticker:     statusTicker,
			FilingType: statusType,
			FiscalYear: statusYear,
			Limit:      statusLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list filings")
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No filings stored.")
			return nil
		}

		formatFilingsList(os.Stdout, recs)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusTicker, "ticker", "", "filter by company ticker")
	statusCmd.Flags().StringVar(&statusType, "type", "", "filter by filing type (10-K, 10-Q)")
	statusCmd.Flags().IntVar(&statusYear, "year", 0, "filter by fiscal year")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 50, "max number of filings to display")
	rootCmd.AddCommand(statusCmd)
}

// formatFilingsList writes a tabular list of filing records to w.
func formatFilingsList(out io.Writer, recs []model.FilingRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILING\tCOMPANY\tPERIOD\tEND_DATE\tUPLOADED\tLLM_SIZE\tFISCAL")
	_, _ = fmt.Fprintln(w, "------\t-------\t------\t--------\t--------\t--------\t------")

	for _, r := range recs {
		company := r.CompanyName
		if company == "" {
			company = r.CompanyTicker
		}
		if len(company) > 30 {
			company = company[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.FilingID,
			company,
			r.DisplayPeriod,
			r.PeriodEndDate,
			r.UploadDate.Format("2006-01-02"),
			r.LLMFileSize,
			r.FiscalSource,
		)
	}
	_ = w.Flush()
}
