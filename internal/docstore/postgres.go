package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-llm/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

const filingColumns = `filing_id, company_ticker, company_name, cik, accession_number,
	filing_type, fiscal_year, fiscal_period, display_period,
	period_end_date, period_end_date_raw, filing_date,
	text_file_path, text_file_size, text_token_count,
	llm_file_path, llm_file_size, llm_token_count, has_llm_format,
	fiscal_source, fiscal_integrity_verified, data_integrity,
	upload_date, last_accessed, access_count`

const upsertFilingSQL = `INSERT INTO filings (` + filingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	ON CONFLICT (filing_id) DO UPDATE SET
	  company_ticker = EXCLUDED.company_ticker,
	  company_name = EXCLUDED.company_name,
	  cik = EXCLUDED.cik,
	  accession_number = EXCLUDED.accession_number,
	  filing_type = EXCLUDED.filing_type,
	  fiscal_year = EXCLUDED.fiscal_year,
	  fiscal_period = EXCLUDED.fiscal_period,
	  display_period = EXCLUDED.display_period,
	  period_end_date = EXCLUDED.period_end_date,
	  period_end_date_raw = EXCLUDED.period_end_date_raw,
	  filing_date = EXCLUDED.filing_date,
	  text_file_path = EXCLUDED.text_file_path,
	  text_file_size = EXCLUDED.text_file_size,
	  text_token_count = EXCLUDED.text_token_count,
	  llm_file_path = EXCLUDED.llm_file_path,
	  llm_file_size = EXCLUDED.llm_file_size,
	  llm_token_count = EXCLUDED.llm_token_count,
	  has_llm_format = EXCLUDED.has_llm_format,
	  fiscal_source = EXCLUDED.fiscal_source,
	  fiscal_integrity_verified = EXCLUDED.fiscal_integrity_verified,
	  data_integrity = EXCLUDED.data_integrity,
	  last_accessed = EXCLUDED.last_accessed,
	  access_count = filings.access_count + 1`

const getFilingSQL = `SELECT ` + filingColumns + ` FROM filings WHERE filing_id = $1`

const latestFilingSQL = `SELECT ` + filingColumns + ` FROM filings
	WHERE company_ticker = $1 AND has_llm_format
	ORDER BY period_end_date DESC, upload_date DESC LIMIT 1`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"upsert_filing": upsertFilingSQL,
	"get_filing":    getFilingSQL,
	"latest_filing": latestFilingSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: parse postgres config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "docstore: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "docstore: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	text_file_size            BIGINT NOT NULL DEFAULT 0,
	text_token_count          BIGINT NOT NULL DEFAULT 0,
	llm_file_path             TEXT NOT NULL DEFAULT '',
	llm_file_size             BIGINT NOT NULL DEFAULT 0,
	llm_token_count           BIGINT NOT NULL DEFAULT 0,
	has_llm_format            BOOLEAN NOT NULL DEFAULT false,
	fiscal_source             TEXT NOT NULL DEFAULT '',
	fiscal_integrity_verified BOOLEAN NOT NULL DEFAULT false,
	data_integrity            JSONB,
	upload_date               TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_accessed             TIMESTAMPTZ NOT NULL DEFAULT now(),
	access_count              BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_filings_ticker ON filings(company_ticker);
CREATE INDEX IF NOT EXISTS idx_filings_type_year ON filings(filing_type, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_filings_ticker_period ON filings(company_ticker, period_end_date DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "docstore: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "docstore: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertFiling(ctx context.Context, rec *model.FilingRecord) error {
	integrityJSON, err := marshalIntegrity(rec.DataIntegrity)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, upsertFilingSQL,
		rec.FilingID, rec.CompanyTicker, rec.CompanyName, rec.CIK, rec.AccessionNumber,
		rec.FilingType, rec.FiscalYear, rec.FiscalPeriod, rec.DisplayPeriod,
		rec.PeriodEndDate, rec.PeriodEndDateRaw, rec.FilingDate,
		rec.TextFilePath, rec.TextFileSize, rec.TextTokenCount,
		rec.LLMFilePath, rec.LLMFileSize, rec.LLMTokenCount, rec.HasLLMFormat,
		rec.FiscalSource, rec.FiscalIntegrityVerified, integrityJSON,
		rec.UploadDate, rec.LastAccessed, rec.AccessCount,
	)
	return eris.Wrapf(err, "docstore: upsert filing %s", rec.FilingID)
}

func (s *PostgresStore) GetFiling(ctx context.Context, filingID string) (*model.FilingRecord, error) {
	rec, err := scanFiling(s.pool.QueryRow(ctx, getFilingSQL, filingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "docstore: get filing %s", filingID)
	}
	return rec, nil
}

func (s *PostgresStore) LatestFiling(ctx context.Context, ticker string) (*model.FilingRecord, error) {
	rec, err := scanFiling(s.pool.QueryRow(ctx, latestFilingSQL, ticker))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "docstore: latest filing for %s", ticker)
	}
	return rec, nil
}

func (s *PostgresStore) ListFilings(ctx context.Context, filter Filter) ([]model.FilingRecord, error) {
	query, args := buildListQuery(filter, postgresPlaceholders)

	rows, err := s.pool.Query(ctx, query, args...)
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
