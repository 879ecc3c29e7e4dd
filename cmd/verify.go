package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-llm/internal/validate"
	"github.com/sells-group/edgar-llm/internal/verify"
	"github.com/sells-group/edgar-llm/internal/xbrl"
)

var verifyThreshold float64

var verifyCmd = &cobra.Command{
	Use:   "verify <artifact> <rawdump>",
	Short: "Verify a published artifact against its raw fact dump",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artifact, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read artifact %s", args[0])
		}
		dumpData, err := os.ReadFile(args[1])
		if err != nil {
			return eris.Wrapf(err, "read raw dump %s", args[1])
		}
		dump, err := xbrl.ParseRawDump(dumpData)
		if err != nil {
			return err
		}

		threshold := verifyThreshold
		if threshold <= 0 {
			threshold = cfg.Verify.Threshold
		}

		report := verify.Run(string(artifact), dump)
		fmt.Print(report.Render())
		fmt.Print(renderArtifactBalance(validate.CheckArtifact(string(artifact))))

		if !report.Passed(threshold) {
			return eris.Errorf("verification failed: adjusted completeness %.4f below threshold %.4f",
				report.AdjustedCompleteness(), threshold)
		}
		fmt.Printf("\nPASSED (threshold %.2f%%)\n", threshold*100)
		return nil
	},
}

func init() {
	verifyCmd.Flags().Float64Var(&verifyThreshold, "threshold", 0, "adjusted completeness required to pass (default from config)")
	rootCmd.AddCommand(verifyCmd)
}

// renderArtifactBalance formats the balance-sheet re-check run on the
// artifact's own statement rows.
func renderArtifactBalance(res *validate.Result) string {
	var b strings.Builder
	b.WriteString("\n=== Balance Sheet (Artifact Rows) ===\n")
	if len(res.Periods) == 0 {
		b.WriteString("No balance sheet rows found in artifact.\n")
		return b.String()
	}
	for _, p := range res.Periods {
		status := "BALANCED"
		if !p.Balanced {
			status = "IMBALANCED"
		}
		fmt.Fprintf(&b, "%s  assets=%s  liabilities+equity=%s  %s\n",
			p.Date, p.Assets, p.Total, status)
	}
	return b.String()
}
