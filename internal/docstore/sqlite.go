package docstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/edgar-llm/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "docstore: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS filings (
	filing_id                 TEXT PRIMARY KEY,
	company_ticker            TEXT NOT NULL,
	company_name              TEXT NOT NULL DEFAULT '',
	cik                       TEXT NOT NULL DEFAULT '',
	accession_number          TEXT NOT NULL DEFAULT '',
	filing_type               TEXT NOT NULL,
	fiscal_year               INTEGER NOT NULL,
	fiscal_period             TEXT NOT NULL,
	display_period            TEXT NOT NULL DEFAULT '',
	period_end_date           TEXT NOT NULL DEFAULT '',
	period_end_date_raw       TEXT NOT NULL DEFAULT '',
	filing_date               TEXT NOT NULL DEFAULT '',
	text_file_path            TEXT NOT NULL DEFAULT '',
	text_file_size            INTEGER NOT NULL DEFAULT 0,
	text_token_count          INTEGER NOT NULL DEFAULT 0,
	llm_file_path             TEXT NOT NULL DEFAULT '',
	llm_file_size             INTEGER NOT NULL DEFAULT 0,
	llm_token_count           INTEGER NOT NULL DEFAULT 0,
	has_llm_format            BOOLEAN NOT NULL DEFAULT 0,
	fiscal_source             TEXT NOT NULL DEFAULT '',
	fiscal_integrity_verified BOOLEAN NOT NULL DEFAULT 0,
	data_integrity            TEXT,
	upload_date               DATETIME NOT NULL,
	last_accessed             DATETIME NOT NULL,
	access_count              INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_filings_ticker ON filings(company_ticker);
CREATE INDEX IF NOT EXISTS idx_filings_type_year ON filings(filing_type, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_filings_ticker_period ON filings(company_ticker, period_end_date DESC);
`

const sqliteUpsertFilingSQL = `INSERT INTO filings (` + filingColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (filing_id) DO UPDATE SET
	  company_ticker = excluded.company_ticker,
	  company_name = excluded.company_name,
	  cik = excluded.cik,
	  accession_number = excluded.accession_number,
	  filing_type = excluded.filing_type,
	  fiscal_year = excluded.fiscal_year,
	  fiscal_period = excluded.fiscal_period,
	  display_period = excluded.display_period,
	  period_end_date = excluded.period_end_date,
	  period_end_date_raw = excluded.period_end_date_raw,
	  filing_date = excluded.filing_date,
	  text_file_path = excluded.text_file_path,
	  text_file_size = excluded.text_file_size,
	  text_token_count = excluded.text_token_count,
	  llm_file_path = excluded.llm_file_path,
	  llm_file_size = excluded.llm_file_size,
	  llm_token_count = excluded.llm_token_count,
	  has_llm_format = excluded.has_llm_format,
	  fiscal_source = excluded.fiscal_source,
	  fiscal_integrity_verified = excluded.fiscal_integrity_verified,
	  data_integrity = excluded.data_integrity,
	  last_accessed = excluded.last_accessed,
	  access_count = access_count + 1`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "docstore: migrate sqlite")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertFiling(ctx context.Context, rec *model.FilingRecord) error {
	integrityJSON, err := marshalIntegrity(rec.DataIntegrity)
	if err != nil {
		return err
	}
	var integrity any
	if integrityJSON != nil {
		integrity = string(integrityJSON)
	}

	_, err = s.db.ExecContext(ctx, sqliteUpsertFilingSQL,
		rec.FilingID, rec.CompanyTicker, rec.CompanyName, rec.CIK, rec.AccessionNumber,
		rec.FilingType, rec.FiscalYear, rec.FiscalPeriod, rec.DisplayPeriod,
		rec.PeriodEndDate, rec.PeriodEndDateRaw, rec.FilingDate,
		rec.TextFilePath, rec.TextFileSize, rec.TextTokenCount,
		rec.LLMFilePath, rec.LLMFileSize, rec.LLMTokenCount, rec.HasLLMFormat,
		rec.FiscalSource, rec.FiscalIntegrityVerified, integrity,
		rec.UploadDate, rec.LastAccessed, rec.AccessCount,
	)
	return eris.Wrapf(err, "docstore: upsert filing %s", rec.FilingID)
}

func (s *SQLiteStore) GetFiling(ctx context.Context, filingID string) (*model.FilingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE filing_id = ?`, filingID)

	rec, err := scanFiling(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "docstore: get filing %s", filingID)
	}
	return rec, nil
}

func (s *SQLiteStore) LatestFiling(ctx context.Context, ticker string) (*model.FilingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filingColumns+` FROM filings
		 WHERE company_ticker = ? AND has_llm_format
		 ORDER BY period_end_date DESC, upload_date DESC LIMIT 1`, ticker)

	rec, err := scanFiling(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "docstore: latest filing for %s", ticker)
	}
	return rec, nil
}

func (s *SQLiteStore) ListFilings(ctx context.Context, filter Filter) ([]model.FilingRecord, error) {
	query, args := buildListQuery(filter, sqlitePlaceholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: list filings")
	}
	defer rows.Close()

	var recs []model.FilingRecord
	for rows.Next() {
		rec, err := scanFiling(rows)
		if err != nil {
			return nil, eris.Wrap(err, "docstore: scan filing")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "docstore: list filings iterate")
}
