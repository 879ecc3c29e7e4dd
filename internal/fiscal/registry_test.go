package fiscal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-llm/internal/model"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("")
	require.NoError(t, err)
	return r
}

func TestRegistry_Determine_KnownAnswers(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name       string
		ticker     string
		date       string
		filingType model.FilingType
		wantYear   int
		wantPeriod string
	}{
		{"AAPL fiscal Q1 crosses calendar year", "AAPL", "2022-12-31", model.Filing10Q, 2023, "Q1"},
		{"MSFT June year end", "MSFT", "2024-06-30", model.Filing10K, 2024, "annual"},
		{"NVDA offset 53-week calendar", "NVDA", "2022-05-01", model.Filing10Q, 2023, "Q1"},
		{"GOOGL calendar year", "GOOGL", "2024-12-31", model.Filing10K, 2024, "annual"},
		{"AAPL 53-week Q2", "AAPL", "2023-04-01", model.Filing10Q, 2023, "Q2"},
		{"AMZN Q3", "AMZN", "2023-09-30", model.Filing10Q, 2023, "Q3"},
		{"TSLA annual", "TSLA", "2022-12-31", model.Filing10K, 2022, "annual"},
		{"NVDA annual", "NVDA", "2024-01-28", model.Filing10K, 2024, "annual"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := r.Determine(tt.ticker, tt.date, tt.filingType)
			require.NoError(t, err)
			assert.Equal(t, tt.wantYear, info.FiscalYear)
			assert.Equal(t, tt.wantPeriod, info.FiscalPeriod)
			assert.Equal(t, SourceRegistry, info.Source)
			assert.Equal(t, 1.0, info.Confidence)
		})
	}
}

func TestRegistry_Determine_AcceptsRawDateForms(t *testing.T) {
	r := newTestRegistry(t)

	info, err := r.Determine("msft", "06/30/2024", model.Filing10K)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-30", info.PeriodEnd)
	assert.Equal(t, 2024, info.FiscalYear)
}

func TestRegistry_Determine_TenKForcesAnnual(t *testing.T) {
	r := newTestRegistry(t)

	// A transition-period 10-K can carry a quarter-end date; the annual
	// period still wins because the form type is authoritative.
	info, err := r.Determine("MSFT", "2024-03-31", model.Filing10K)
	require.NoError(t, err)
	assert.Equal(t, "annual", info.FiscalPeriod)
	assert.Equal(t, 2024, info.FiscalYear)
}

func TestRegistry_Determine_LookupMiss(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Determine("AAPL", "2099-01-01", model.Filing10Q)
	require.Error(t, err)

	var lookupErr *model.FiscalLookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, "AAPL", lookupErr.Ticker)
	assert.Equal(t, "2099-01-01", lookupErr.Date)

	_, err = r.Determine("ZZZZ", "2022-12-31", model.Filing10Q)
	assert.True(t, errors.As(err, &lookupErr))
}

func TestRegistry_Determine_InvalidDate(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Determine("AAPL", "not-a-date", model.Filing10Q)
	require.Error(t, err)

	var dateErr *model.InvalidDateFormatError
	assert.True(t, errors.As(err, &dateErr))
}

func TestRegistry_AddMapping(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddMapping("ZZZZ", "2030-03-31", 2030, PeriodQ1)
	require.NoError(t, err)
	assert.True(t, r.Known("ZZZZ"))

	info, err := r.Determine("ZZZZ", "2030-03-31", model.Filing10Q)
	require.NoError(t, err)
	assert.Equal(t, 2030, info.FiscalYear)
	assert.Equal(t, "Q1", info.FiscalPeriod)
}

func TestRegistry_AddMapping_Invalid(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddMapping("ZZZZ", "2030-03-31", 2030, "H2")
	require.Error(t, err)

	var dataErr *model.FiscalDataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestRegistry_FilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fiscal.json")

	r, err := NewRegistry(path)
	require.NoError(t, err)

	_, err = r.AddMapping("ZZZZ", "2030-03-31", 2030, PeriodQ1)
	require.NoError(t, err)

	// A fresh registry built from the same file sees the mapping.
	reloaded, err := NewRegistry(path)
	require.NoError(t, err)

	info, err := reloaded.Determine("ZZZZ", "2030-03-31", model.Filing10Q)
	require.NoError(t, err)
	assert.Equal(t, 2030, info.FiscalYear)
	assert.Equal(t, "Q1", info.FiscalPeriod)
}

func TestRegistry_FileOverridesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fiscal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"AAPL": {"2022-12-31": {"fiscal_year": 2055, "fiscal_period": "Q2"}}}`), 0o644))

	r, err := NewRegistry(path)
	require.NoError(t, err)

	info, err := r.Determine("AAPL", "2022-12-31", model.Filing10Q)
	require.NoError(t, err)
	assert.Equal(t, 2055, info.FiscalYear)
	assert.Equal(t, "Q2", info.FiscalPeriod)
}

func TestRegistry_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fiscal.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewRegistry(path)
	assert.Error(t, err)
}

func TestRegistry_List(t *testing.T) {
	r := newTestRegistry(t)

	aapl := r.List("AAPL")
	require.Len(t, aapl, 16) // four fiscal years, four periods each
	assert.Equal(t, "2021-12-25", aapl[0].PeriodEnd)
	for i := 1; i < len(aapl); i++ {
		assert.Less(t, aapl[i-1].PeriodEnd, aapl[i].PeriodEnd)
	}

	all := r.List("")
	assert.Greater(t, len(all), len(aapl))

	assert.Empty(t, r.List("ZZZZ"))
}
