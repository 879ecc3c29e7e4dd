package storage

import (
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/fiscal"
	"github.com/sells-group/edgar-llm/internal/model"
)

// MetadataFiscal is the fiscal focus the filing itself reports, taken from the
// dei:DocumentFiscalYearFocus / dei:DocumentFiscalPeriodFocus facts.
type MetadataFiscal struct {
	Year   int
	Period string
}

// ResolveFiscal determines the filing's fiscal assignment. The registry
// answers when it can; otherwise the fallback chain runs: the filing's own
// fiscal focus, then annual plus filing-date year for a 10-K, then a Q?
// placeholder. Every fallback is recorded in the integrity map. With strict
// set, a registry miss is a hard failure instead.
func ResolveFiscal(reg *fiscal.Registry, d model.FilingDescriptor, meta MetadataFiscal, strict bool, integrity map[string]any) (fiscal.PeriodInfo, error) {
	if d.PeriodEndDate != "" {
		fi, err := reg.Determine(d.Ticker, d.PeriodEndDate, d.FilingType)
		if err == nil {
			return fi, nil
		}
		if strict {
			return fiscal.PeriodInfo{}, eris.Wrapf(err, "storage: strict fiscal lookup for %s", d.Ticker)
		}
		zap.L().Debug("fiscal registry miss",
			zap.String("ticker", d.Ticker),
			zap.String("period_end", d.PeriodEndDate),
			zap.Error(err))
	} else if strict {
		return fiscal.PeriodInfo{}, eris.Errorf("storage: strict fiscal lookup for %s: missing period end date", d.Ticker)
	}

	if fi, ok := metadataFallback(d, meta); ok {
		recordFallback(integrity, fi)
		return fi, nil
	}
	if fi, ok := filingDateFallback(d); ok {
		recordFallback(integrity, fi)
		return fi, nil
	}
	fi := placeholderFallback(d)
	recordFallback(integrity, fi)
	return fi, nil
}

// metadataFallback trusts the fiscal focus the issuer tagged in the filing.
func metadataFallback(d model.FilingDescriptor, meta MetadataFiscal) (fiscal.PeriodInfo, bool) {
	if meta.Year <= 0 || meta.Period == "" {
		return fiscal.PeriodInfo{}, false
	}
	period := meta.Period
	if period == "FY" {
		period = fiscal.PeriodAnnual
	}
	return fiscal.PeriodInfo{
		Ticker:       d.Ticker,
		PeriodEnd:    d.PeriodEndDate,
		FiscalYear:   meta.Year,
		FiscalPeriod: period,
		FilingType:   d.FilingType,
		Source:       fiscal.SourceMetadata,
		Confidence:   0.7,
	}, true
}

// filingDateFallback assigns annual plus the filing-date year to a 10-K.
func filingDateFallback(d model.FilingDescriptor) (fiscal.PeriodInfo, bool) {
	if d.FilingType != model.Filing10K || len(d.FilingDate) < 4 {
		return fiscal.PeriodInfo{}, false
	}
	year, err := strconv.Atoi(d.FilingDate[:4])
	if err != nil {
		return fiscal.PeriodInfo{}, false
	}
	return fiscal.PeriodInfo{
		Ticker:       d.Ticker,
		PeriodEnd:    d.PeriodEndDate,
		FiscalYear:   year,
		FiscalPeriod: fiscal.PeriodAnnual,
		FilingType:   d.FilingType,
		Source:       fiscal.SourceFilingDate,
		Confidence:   0.4,
	}, true
}

// placeholderFallback is the last resort: whatever year a date field offers
// and an unknown quarter.
func placeholderFallback(d model.FilingDescriptor) fiscal.PeriodInfo {
	year := 0
	for _, raw := range []string{d.PeriodEndDate, d.FilingDate} {
		if len(raw) >= 4 {
			if y, err := strconv.Atoi(raw[:4]); err == nil {
				year = y
				break
			}
		}
	}
	period := "Q?"
	if d.FilingType == model.Filing10K {
		period = fiscal.PeriodAnnual
	}
	return fiscal.PeriodInfo{
		Ticker:       d.Ticker,
		PeriodEnd:    d.PeriodEndDate,
		FiscalYear:   year,
		FiscalPeriod: period,
		FilingType:   d.FilingType,
		Source:       fiscal.SourcePlaceholder,
		Confidence:   0,
	}
}

func recordFallback(integrity map[string]any, fi fiscal.PeriodInfo) {
	if integrity == nil {
		return
	}
	integrity["fiscal_fallback"] = fi.Source
	integrity["fiscal_confidence"] = fi.Confidence
	zap.L().Warn("fiscal fallback applied",
		zap.String("ticker", fi.Ticker),
		zap.String("source", fi.Source),
		zap.Int("fiscal_year", fi.FiscalYear),
		zap.String("fiscal_period", fi.FiscalPeriod))
}
