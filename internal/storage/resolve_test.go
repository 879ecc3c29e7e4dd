package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-llm/internal/fiscal"
	"github.com/sells-group/edgar-llm/internal/model"
)

func testRegistry(t *testing.T) *fiscal.Registry {
	t.Helper()
	reg, err := fiscal.NewRegistry("")
	require.NoError(t, err)
	return reg
}

func TestResolveFiscalRegistryHit(t *testing.T) {
	d := model.FilingDescriptor{
		Ticker:        "AAPL",
		FilingType:    model.Filing10Q,
		PeriodEndDate: "2022-12-31",
		FilingDate:    "2023-02-03",
	}
	integrity := map[string]any{}

	fi, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{}, false, integrity)
	require.NoError(t, err)
	assert.Equal(t, 2023, fi.FiscalYear)
	assert.Equal(t, "Q1", fi.FiscalPeriod)
	assert.Equal(t, fiscal.SourceRegistry, fi.Source)
	assert.Equal(t, 1.0, fi.Confidence)
	assert.Empty(t, integrity, "registry hits leave no fallback trail")
}

func TestResolveFiscalStrictMiss(t *testing.T) {
	d := model.FilingDescriptor{
		Ticker:        "ZZZT",
		FilingType:    model.Filing10Q,
		PeriodEndDate: "2025-02-01",
	}

	_, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{}, true, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict fiscal lookup")
}

func TestResolveFiscalStrictMissingPeriodEnd(t *testing.T) {
	d := model.FilingDescriptor{Ticker: "ZZZT", FilingType: model.Filing10K, FilingDate: "2024-07-15"}

	_, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{}, true, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing period end date")
}

func TestResolveFiscalMetadataFallback(t *testing.T) {
	d := model.FilingDescriptor{
		Ticker:        "ZZZT",
		FilingType:    model.Filing10Q,
		PeriodEndDate: "2025-02-01",
	}
	integrity := map[string]any{}

	fi, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{Year: 2025, Period: "Q2"}, false, integrity)
	require.NoError(t, err)
	assert.Equal(t, 2025, fi.FiscalYear)
	assert.Equal(t, "Q2", fi.FiscalPeriod)
	assert.Equal(t, fiscal.SourceMetadata, fi.Source)
	assert.Equal(t, 0.7, fi.Confidence)
	assert.Equal(t, fiscal.SourceMetadata, integrity["fiscal_fallback"])
	assert.Equal(t, 0.7, integrity["fiscal_confidence"])
}

func TestResolveFiscalMetadataFYBecomesAnnual(t *testing.T) {
	d := model.FilingDescriptor{
		Ticker:        "ZZZT",
		FilingType:    model.Filing10K,
		PeriodEndDate: "2025-06-30",
	}

	fi, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{Year: 2025, Period: "FY"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, fiscal.PeriodAnnual, fi.FiscalPeriod)
	assert.Equal(t, "FY2025", fi.Display())
}

func TestResolveFiscalFilingDateFallbackFor10K(t *testing.T) {
	// No period end and no tagged fiscal focus: a 10-K still gets a usable
	// annual assignment from its filing date.
	d := model.FilingDescriptor{
		Ticker:     "ZZZT",
		FilingType: model.Filing10K,
		FilingDate: "2024-07-15",
	}
	integrity := map[string]any{}

	fi, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{}, false, integrity)
	require.NoError(t, err)
	assert.Equal(t, 2024, fi.FiscalYear)
	assert.Equal(t, fiscal.PeriodAnnual, fi.FiscalPeriod)
	assert.Equal(t, fiscal.SourceFilingDate, fi.Source)
	assert.Equal(t, 0.4, fi.Confidence)
	assert.Equal(t, fiscal.SourceFilingDate, integrity["fiscal_fallback"])
}

func TestResolveFiscalPlaceholderFallback(t *testing.T) {
	d := model.FilingDescriptor{
		Ticker:        "ZZZT",
		FilingType:    model.Filing10Q,
		PeriodEndDate: "2025-02-01",
		FilingDate:    "2025-03-15",
	}
	integrity := map[string]any{}

	fi, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{}, false, integrity)
	require.NoError(t, err)
	assert.Equal(t, 2025, fi.FiscalYear)
	assert.Equal(t, "Q?", fi.FiscalPeriod)
	assert.Equal(t, fiscal.SourcePlaceholder, fi.Source)
	assert.Equal(t, 0.0, fi.Confidence)
	assert.Equal(t, fiscal.SourcePlaceholder, integrity["fiscal_fallback"])
}

func TestResolveFiscalNilIntegrityMap(t *testing.T) {
	d := model.FilingDescriptor{Ticker: "ZZZT", FilingType: model.Filing10Q, FilingDate: "2025-03-15"}

	fi, err := ResolveFiscal(testRegistry(t), d, MetadataFiscal{}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, fiscal.SourcePlaceholder, fi.Source)
	assert.Equal(t, 2025, fi.FiscalYear)
}
