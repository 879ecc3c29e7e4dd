package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-llm/internal/model"
)

type scannable interface {
	Scan(dest ...any) error
}

// scanFiling reads one row in filingColumns order.
func scanFiling(row scannable) (*model.FilingRecord, error) {
	var rec model.FilingRecord
	var integrityJSON []byte

	err := row.Scan(
		&rec.FilingID, &rec.CompanyTicker, &rec.CompanyName, &rec.CIK, &rec.AccessionNumber,
		&rec.FilingType, &rec.FiscalYear, &rec.FiscalPeriod, &rec.DisplayPeriod,
		&rec.PeriodEndDate, &rec.PeriodEndDateRaw, &rec.FilingDate,
		&rec.TextFilePath, &rec.TextFileSize, &rec.TextTokenCount,
		&rec.LLMFilePath, &rec.LLMFileSize, &rec.LLMTokenCount, &rec.HasLLMFormat,
		&rec.FiscalSource, &rec.FiscalIntegrityVerified, &integrityJSON,
		&rec.UploadDate, &rec.LastAccessed, &rec.AccessCount,
	)
	if err != nil {
		return nil, err
	}

	if len(integrityJSON) > 0 {
		if err := json.Unmarshal(integrityJSON, &rec.DataIntegrity); err != nil {
			return nil, eris.Wrap(err, "docstore: unmarshal data_integrity")
		}
	}
	return &rec, nil
}

func marshalIntegrity(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	return data, eris.Wrap(err, "docstore: marshal data_integrity")
}

type placeholderFunc func(idx int) string

func postgresPlaceholders(idx int) string { return fmt.Sprintf("$%d", idx) }

func sqlitePlaceholders(int) string { return "?" }

// buildListQuery assembles the filtered listing query for either dialect.
func buildListQuery(f Filter, ph placeholderFunc) (string, []any) {
	query := `SELECT ` + filingColumns + ` FROM filings WHERE 1=1`
	var args []any
	idx := 1

	if f.Ticker != "" {
		query += ` AND company_ticker = ` + ph(idx)
		args = append(args, f.Ticker)
		idx++
	}
	if f.FilingType != "" {
		query += ` AND filing_type = ` + ph(idx)
		args = append(args, f.FilingType)
		idx++
	}
	if f.FiscalYear > 0 {
		query += ` AND fiscal_year = ` + ph(idx)
		args = append(args, f.FiscalYear)
		idx++
	}
	query += ` ORDER BY company_ticker, period_end_date DESC, filing_id`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + ph(idx)
	args = append(args, limit)

	return query, args
}
