// Package fiscal maps filing period-end dates to issuer fiscal years and
// periods. Mappings are explicit per (ticker, date); there is no calendar
// arithmetic and no nearest-quarter guessing. A date the registry does not
// know is a lookup error the caller has to handle.
package fiscal

import (
	"fmt"
	"strings"

	"github.com/sells-group/edgar-llm/internal/model"
)

// Fiscal period tokens. US issuers report the fourth quarter inside the
// annual report, so "Q4" appears only in user-supplied mappings.
const (
	PeriodQ1     = "Q1"
	PeriodQ2     = "Q2"
	PeriodQ3     = "Q3"
	PeriodQ4     = "Q4"
	PeriodAnnual = "annual"
)

// Sources recorded on a PeriodInfo, ordered from most to least trustworthy.
const (
	SourceRegistry    = "registry"
	SourceMetadata    = "metadata"
	SourceFilingDate  = "filing_date"
	SourcePlaceholder = "placeholder"
)

// PeriodInfo is a validated fiscal assignment for one filing period.
type PeriodInfo struct {
	Ticker       string           `json:"ticker"`
	PeriodEnd    string           `json:"period_end"` // YYYY-MM-DD
	FiscalYear   int              `json:"fiscal_year"`
	FiscalPeriod string           `json:"fiscal_period"`
	FilingType   model.FilingType `json:"filing_type,omitempty"`
	Source       string           `json:"source"`
	Confidence   float64          `json:"confidence"`
}

// NewPeriodInfo builds a PeriodInfo, rejecting anything that violates the
// field contract with a FiscalDataError.
func NewPeriodInfo(ticker, periodEnd string, year int, period string, filingType model.FilingType, source string, confidence float64) (PeriodInfo, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return PeriodInfo{}, &model.FiscalDataError{Reason: "empty ticker"}
	}
	normalized, err := NormalizePeriodEnd(periodEnd)
	if err != nil {
		return PeriodInfo{}, &model.FiscalDataError{Reason: fmt.Sprintf("period end %q is not a date", periodEnd)}
	}
	if year < 1990 || year > 2100 {
		return PeriodInfo{}, &model.FiscalDataError{Reason: fmt.Sprintf("fiscal year %d out of range", year)}
	}
	if !validPeriod(period) {
		return PeriodInfo{}, &model.FiscalDataError{Reason: fmt.Sprintf("unknown fiscal period %q", period)}
	}
	if filingType != "" && !filingType.Valid() {
		return PeriodInfo{}, &model.FiscalDataError{Reason: fmt.Sprintf("unsupported filing type %q", filingType)}
	}
	if source == "" {
		return PeriodInfo{}, &model.FiscalDataError{Reason: "empty source"}
	}
	if confidence < 0 || confidence > 1 {
		return PeriodInfo{}, &model.FiscalDataError{Reason: fmt.Sprintf("confidence %v outside [0,1]", confidence)}
	}
	return PeriodInfo{
		Ticker:       ticker,
		PeriodEnd:    normalized,
		FiscalYear:   year,
		FiscalPeriod: period,
		FilingType:   filingType,
		Source:       source,
		Confidence:   confidence,
	}, nil
}

// IsAnnual reports whether the period covers the full fiscal year.
func (p PeriodInfo) IsAnnual() bool {
	return p.FiscalPeriod == PeriodAnnual
}

// Display renders the period for humans: "FY2024 Q1", or "FY2024" for annual.
func (p PeriodInfo) Display() string {
	if p.IsAnnual() {
		return fmt.Sprintf("FY%d", p.FiscalYear)
	}
	return fmt.Sprintf("FY%d %s", p.FiscalYear, p.FiscalPeriod)
}

func validPeriod(period string) bool {
	switch period {
	case PeriodQ1, PeriodQ2, PeriodQ3, PeriodQ4, PeriodAnnual:
		return true
	default:
		return false
	}
}
