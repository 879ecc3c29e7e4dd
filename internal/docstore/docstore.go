// Package docstore persists filing metadata records in the filings
// collection, backed by Postgres or SQLite.
package docstore

import (
	"context"

	"github.com/sells-group/edgar-llm/internal/model"
)

// Filter narrows ListFilings output.
type Filter struct {
	Ticker     string `json:"ticker,omitempty"`
	FilingType string `json:"filing_type,omitempty"`
	FiscalYear int    `json:"fiscal_year,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Store is the filings metadata collection. Upserting an existing filing id
// refreshes the record, bumps access_count and keeps the original
// upload_date; Get and Latest return nil without error when nothing matches.
type Store interface {
	UpsertFiling(ctx context.Context, rec *model.FilingRecord) error
	GetFiling(ctx context.Context, filingID string) (*model.FilingRecord, error)
	ListFilings(ctx context.Context, filter Filter) ([]model.FilingRecord, error)
	LatestFiling(ctx context.Context, ticker string) (*model.FilingRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
