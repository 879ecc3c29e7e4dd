package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-llm/internal/fiscal"
	"github.com/sells-group/edgar-llm/internal/model"
)

var fiscalCheckType string

var fiscalCmd = &cobra.Command{
	Use:   "fiscal",
	Short: "Inspect and maintain the fiscal period registry",
}

var fiscalCheckCmd = &cobra.Command{
	Use:   "check <ticker> <date>",
	Short: "Resolve a period end date to its fiscal period",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ft := model.FilingType(fiscalCheckType)
		if !ft.Valid() {
			return eris.Errorf("unsupported filing type %q", fiscalCheckType)
		}

		reg, err := fiscal.NewRegistry(cfg.Fiscal.RegistryFile)
		if err != nil {
			return err
		}

		info, err := reg.Determine(args[0], args[1], ft)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s: %s (source %s, confidence %.2f)\n",
			info.Ticker, info.PeriodEnd, info.Display(), info.Source, info.Confidence)
		return nil
	},
}

var fiscalAddCmd = &cobra.Command{
	Use:   "add <ticker> <date> <year> <period>",
	Short: "Add a fiscal period mapping to the registry file",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Fiscal.RegistryFile == "" {
			return eris.New("fiscal add requires fiscal.registry_file (EDGARLLM_FISCAL_REGISTRY_FILE)")
		}

		year, err := strconv.Atoi(args[2])
		if err != nil {
			return eris.Errorf("invalid fiscal year %q", args[2])
		}

		reg, err := fiscal.NewRegistry(cfg.Fiscal.RegistryFile)
		if err != nil {
			return err
		}

		info, err := reg.AddMapping(args[0], args[1], year, args[3])
		if err != nil {
			return err
		}

		fmt.Printf("%s %s: %s written to %s\n",
			info.Ticker, info.PeriodEnd, info.Display(), cfg.Fiscal.RegistryFile)
		return nil
	},
}

var fiscalListCmd = &cobra.Command{
	Use:   "list [ticker]",
	Short: "List fiscal period mappings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := fiscal.NewRegistry(cfg.Fiscal.RegistryFile)
		if err != nil {
			return err
		}

		ticker := ""
		if len(args) == 1 {
			ticker = args[0]
		}
		mappings := reg.List(ticker)
		if len(mappings) == 0 {
			fmt.Fprintln(os.Stderr, "No mappings found.")
			return nil
		}

		formatMappings(os.Stdout, mappings)
		return nil
	},
}

func init() {
	fiscalCheckCmd.Flags().StringVar(&fiscalCheckType, "type", "10-Q", "filing type to resolve for (a 10-K reports the annual period)")

	fiscalCmd.AddCommand(fiscalCheckCmd)
	fiscalCmd.AddCommand(fiscalAddCmd)
	fiscalCmd.AddCommand(fiscalListCmd)
	rootCmd.AddCommand(fiscalCmd)
}

// formatMappings writes a tabular list of fiscal mappings to w.
func formatMappings(out io.Writer, mappings []fiscal.PeriodInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TICKER\tPERIOD_END\tFISCAL_YEAR\tPERIOD")
	_, _ = fmt.Fprintln(w, "------\t----------\t-----------\t------")
	for _, m := range mappings {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.Ticker, m.PeriodEnd, m.FiscalYear, m.FiscalPeriod)
	}
	_ = w.Flush()
}
