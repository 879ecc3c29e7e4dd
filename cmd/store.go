package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-llm/internal/docstore"
)

// initStore opens the filings metadata store for the configured driver.
func initStore(ctx context.Context) (docstore.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "edgar-llm.db"
		}
		return docstore.NewSQLite(path)
	case "postgres":
		return docstore.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
