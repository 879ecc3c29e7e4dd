package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-llm/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var filingRowColumns = []string{
	"filing_id", "company_ticker", "company_name", "cik", "accession_number",
	"filing_type", "fiscal_year", "fiscal_period", "display_period",
	"period_end_date", "period_end_date_raw", "filing_date",
	"text_file_path", "text_file_size", "text_token_count",
	"llm_file_path", "llm_file_size", "llm_token_count", "has_llm_format",
	"fiscal_source", "fiscal_integrity_verified", "data_integrity",
	"upload_date", "last_accessed", "access_count",
}

func sampleRecord() *model.FilingRecord {
	now := time.Date(2023, 2, 3, 12, 0, 0, 0, time.UTC)
	return &model.FilingRecord{
		FilingID:                "AAPL_10-Q_2023_Q1",
		CompanyTicker:           "AAPL",
		CompanyName:             "Apple Inc.",
		CIK:                     "0000320193",
		AccessionNumber:         "0000320193-23-000006",
		FilingType:              "10-Q",
		FiscalYear:              2023,
		FiscalPeriod:            "Q1",
		DisplayPeriod:           "FY2023 Q1",
		PeriodEndDate:           "2022-12-31",
		PeriodEndDateRaw:        "2022-12-31",
		FilingDate:              "2023-02-03",
		TextFilePath:            "companies/AAPL/10-Q/2023/Q1/AAPL_10-Q_2023_Q1_text.txt",
		TextFileSize:            2048,
		TextTokenCount:          512,
		LLMFilePath:             "companies/AAPL/10-Q/2023/Q1/AAPL_10-Q_2023_Q1_llm.txt",
		LLMFileSize:             4096,
		LLMTokenCount:           1024,
		HasLLMFormat:            true,
		FiscalSource:            "registry",
		FiscalIntegrityVerified: true,
		UploadDate:              now,
		LastAccessed:            now,
	}
}

func addFilingRow(rows *pgxmock.Rows, rec *model.FilingRecord, integrity []byte) *pgxmock.Rows {
	return rows.AddRow(
		rec.FilingID, rec.CompanyTicker, rec.CompanyName, rec.CIK, rec.AccessionNumber,
		rec.FilingType, rec.FiscalYear, rec.FiscalPeriod, rec.DisplayPeriod,
		rec.PeriodEndDate, rec.PeriodEndDateRaw, rec.FilingDate,
		rec.TextFilePath, rec.TextFileSize, rec.TextTokenCount,
		rec.LLMFilePath, rec.LLMFileSize, rec.LLMTokenCount, rec.HasLLMFormat,
		rec.FiscalSource, rec.FiscalIntegrityVerified, integrity,
		rec.UploadDate, rec.LastAccessed, rec.AccessCount,
	)
}

func TestPostgresUpsertFiling(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	args := make([]any, 25)
	args[0] = "AAPL_10-Q_2023_Q1"
	for i := 1; i < len(args); i++ {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec(`INSERT INTO filings .* ON CONFLICT \(filing_id\) DO UPDATE SET`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertFiling(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetFiling(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := sampleRecord()
	rows := addFilingRow(mock.NewRows(filingRowColumns), rec, []byte(`{"fiscal_fallback":"filing_date"}`))
	mock.ExpectQuery(`SELECT .* FROM filings WHERE filing_id = \$1`).
		WithArgs("AAPL_10-Q_2023_Q1").
		WillReturnRows(rows)

	got, err := s.GetFiling(context.Background(), "AAPL_10-Q_2023_Q1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.CompanyTicker)
	assert.Equal(t, 2023, got.FiscalYear)
	assert.True(t, got.HasLLMFormat)
	assert.Equal(t, "filing_date", got.DataIntegrity["fiscal_fallback"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetFilingNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM filings WHERE filing_id = \$1`).
		WithArgs("MISSING_10-K_2024").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetFiling(context.Background(), "MISSING_10-K_2024")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestFiling(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := sampleRecord()
	rows := addFilingRow(mock.NewRows(filingRowColumns), rec, nil)
	mock.ExpectQuery(`WHERE company_ticker = \$1 AND has_llm_format`).
		WithArgs("AAPL").
		WillReturnRows(rows)

	got, err := s.LatestFiling(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL_10-Q_2023_Q1", got.FilingID)
	assert.Nil(t, got.DataIntegrity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestFilingNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE company_ticker = \$1 AND has_llm_format`).
		WithArgs("ZZZT").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.LatestFiling(context.Background(), "ZZZT")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListFilings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := sampleRecord()
	rows := addFilingRow(mock.NewRows(filingRowColumns), rec, nil)
	mock.ExpectQuery(`AND company_ticker = \$1 AND fiscal_year = \$2.*LIMIT \$3`).
		WithArgs("AAPL", 2023, 100).
		WillReturnRows(rows)

	recs, err := s.ListFilings(context.Background(), Filter{Ticker: "AAPL", FiscalYear: 2023})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "AAPL_10-Q_2023_Q1", recs[0].FilingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS filings`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
