// Package storage publishes filing artifacts to an object store and keeps the
// filings metadata collection in step. Every artifact path and document id in
// the repo derives from the two functions in this file.
package storage

import (
	"fmt"

	"github.com/sells-group/edgar-llm/internal/fiscal"
	"github.com/sells-group/edgar-llm/internal/model"
)

// PathMeta carries the identity fields paths and document ids derive from.
type PathMeta struct {
	Ticker       string
	FilingType   model.FilingType
	FiscalYear   int
	FiscalPeriod string
}

// annualLayout reports whether the fiscal-period segment is dropped: annual
// reports and 10-K filings live directly under the fiscal year.
func (m PathMeta) annualLayout() bool {
	return m.FilingType == model.Filing10K || m.FiscalPeriod == fiscal.PeriodAnnual
}

// CanonicalPath renders the object key for one artifact:
// companies/<TICKER>/<TYPE>/<FY>/<FP>/<name>, without the <FP> segment for
// annual filings.
func CanonicalPath(m PathMeta, name string) string {
	if m.annualLayout() {
		return fmt.Sprintf("companies/%s/%s/%d/%s", m.Ticker, m.FilingType, m.FiscalYear, name)
	}
	return fmt.Sprintf("companies/%s/%s/%d/%s/%s", m.Ticker, m.FilingType, m.FiscalYear, m.FiscalPeriod, name)
}

// DocumentID renders the docstore document id: <TICKER>_<TYPE>_<FY>, with the
// fiscal period appended for quarterly filings.
func DocumentID(m PathMeta) string {
	if m.annualLayout() {
		return fmt.Sprintf("%s_%s_%d", m.Ticker, m.FilingType, m.FiscalYear)
	}
	return fmt.Sprintf("%s_%s_%d_%s", m.Ticker, m.FilingType, m.FiscalYear, m.FiscalPeriod)
}

// EstimateTokens approximates the token count of artifact text.
func EstimateTokens(content string) int64 {
	return int64(len(content)) / 4
}
