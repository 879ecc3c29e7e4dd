package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/storage"
	"github.com/sells-group/edgar-llm/pkg/anthropic"
)

// maxQueryChars caps how much of the artifact is sent as cached context.
const maxQueryChars = 50000

var queryCmd = &cobra.Command{
	Use:   "query <ticker> <question...>",
	Short: "Ask a question about a company's latest published filing",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ticker := strings.ToUpper(strings.TrimSpace(args[0]))
		question := strings.Join(args[1:], " ")

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic key is required (EDGARLLM_ANTHROPIC_KEY)")
		}

		meta, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer meta.Close()
		if err := meta.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rec, err := meta.LatestFiling(ctx, ticker)
		if err != nil {
			return eris.Wrap(err, "look up latest filing")
		}
		if rec == nil {
			return eris.Errorf("no published filings for %s", ticker)
		}

		objects, err := storage.NewFSStore(cfg.Storage.BucketDir)
		if err != nil {
			return err
		}
		data, err := objects.Get(ctx, rec.LLMFilePath)
		if err != nil {
			return eris.Wrapf(err, "read artifact %s", rec.LLMFilePath)
		}
		content := truncateForContext(string(data), maxQueryChars)

		zap.L().Info("querying filing",
			zap.String("ticker", ticker),
			zap.String("filing_id", rec.FilingID),
			zap.String("period", rec.DisplayPeriod),
			zap.Int("context_chars", len(content)),
		)

		client := anthropic.NewClient(cfg.Anthropic.Key)
		resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     cfg.Anthropic.Model,
			MaxTokens: int64(cfg.Anthropic.MaxTokens),
			System: anthropic.BuildCachedSystemBlocks(
				"Below is financial data from an SEC filing in a format optimized for AI analysis.\n\n" + content),
			Messages: []anthropic.Message{
				{Role: "user", Content: question + "\n\nAnswer based solely on the data provided, with no additional information or assumptions."},
			},
		})
		if err != nil {
			return err
		}
		resp.Usage.LogCost(cfg.Anthropic.Model, "query")

		fmt.Printf("%s %s (%s)\n\n", rec.CompanyTicker, rec.DisplayPeriod, rec.FilingType)
		fmt.Println(resp.Text())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

// truncateForContext cuts the artifact at a line boundary under the limit so a
// statement row is never sent half-formed.
func truncateForContext(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut
}
