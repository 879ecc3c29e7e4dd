package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the filings metadata schema",
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

		zap.L().Info("docstore schema ready", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
