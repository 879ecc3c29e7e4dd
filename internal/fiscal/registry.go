package fiscal

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/model"
)

// entry is one (date → fiscal year + period) mapping.
type entry struct {
	FiscalYear   int    `json:"fiscal_year"`
	FiscalPeriod string `json:"fiscal_period"`
}

// Registry resolves period-end dates to fiscal periods from explicit
// mappings. It is built once at startup; Determine and List take the read
// lock, AddMapping the write lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]map[string]entry // ticker → date → entry
	user    map[string]map[string]entry // file-backed overrides, persisted on AddMapping
	file    string
}

// NewRegistry builds a registry from the compiled tables, merging the JSON
// file at path over them when the path is set. A missing file is fine; a
// malformed one is an error.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		entries: builtinEntries(),
		user:    make(map[string]map[string]entry),
		file:    path,
	}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, eris.Wrapf(err, "fiscal: read registry file %s", path)
	}
	var loaded map[string]map[string]entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, eris.Wrapf(err, "fiscal: parse registry file %s", path)
	}
	for ticker, dates := range loaded {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		for date, ent := range dates {
			if _, err := NewPeriodInfo(ticker, date, ent.FiscalYear, ent.FiscalPeriod, "", SourceRegistry, 1.0); err != nil {
				return nil, eris.Wrapf(err, "fiscal: registry file entry %s %s", ticker, date)
			}
			r.put(ticker, date, ent)
			r.putUser(ticker, date, ent)
		}
	}
	zap.L().Debug("fiscal: merged registry file",
		zap.String("path", path),
		zap.Int("tickers", len(loaded)),
	)
	return r, nil
}

// Determine resolves a (ticker, raw date, filing type) triple to a validated
// PeriodInfo. The date must match an explicit mapping; a 10-K always reports
// the annual period regardless of the mapped quarter.
func (r *Registry) Determine(ticker, rawDate string, filingType model.FilingType) (PeriodInfo, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	date, err := NormalizePeriodEnd(rawDate)
	if err != nil {
		return PeriodInfo{}, err
	}

	r.mu.RLock()
	ent, ok := r.entries[ticker][date]
	r.mu.RUnlock()
	if !ok {
		return PeriodInfo{}, &model.FiscalLookupError{Ticker: ticker, Date: date}
	}

	period := ent.FiscalPeriod
	if filingType == model.Filing10K {
		period = PeriodAnnual
	}
	return NewPeriodInfo(ticker, date, ent.FiscalYear, period, filingType, SourceRegistry, 1.0)
}

// Known reports whether the registry carries any mappings for the ticker.
func (r *Registry) Known(ticker string) bool {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[ticker]) > 0
}

// AddMapping validates and stores a user mapping, then persists the merged
// user table when the registry is file-backed. The new mapping shadows any
// compiled-in entry for the same date.
func (r *Registry) AddMapping(ticker, rawDate string, year int, period string) (PeriodInfo, error) {
	info, err := NewPeriodInfo(ticker, rawDate, year, period, "", SourceRegistry, 1.0)
	if err != nil {
		return PeriodInfo{}, err
	}
	ent := entry{FiscalYear: info.FiscalYear, FiscalPeriod: info.FiscalPeriod}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(info.Ticker, info.PeriodEnd, ent)
	r.putUser(info.Ticker, info.PeriodEnd, ent)
	if r.file != "" {
		if err := r.persistLocked(); err != nil {
			return PeriodInfo{}, err
		}
	}

	zap.L().Info("fiscal: mapping added",
		zap.String("ticker", info.Ticker),
		zap.String("period_end", info.PeriodEnd),
		zap.Int("fiscal_year", info.FiscalYear),
		zap.String("fiscal_period", info.FiscalPeriod),
	)
	return info, nil
}

// List returns every mapping for a ticker sorted by date, or all mappings
// when ticker is empty (sorted by ticker, then date).
func (r *Registry) List(ticker string) []PeriodInfo {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var tickers []string
	if ticker != "" {
		if _, ok := r.entries[ticker]; ok {
			tickers = []string{ticker}
		}
	} else {
		for t := range r.entries {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
	}

	var out []PeriodInfo
	for _, t := range tickers {
		dates := make([]string, 0, len(r.entries[t]))
		for d := range r.entries[t] {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		for _, d := range dates {
			ent := r.entries[t][d]
			out = append(out, PeriodInfo{
				Ticker:       t,
				PeriodEnd:    d,
				FiscalYear:   ent.FiscalYear,
				FiscalPeriod: ent.FiscalPeriod,
				Source:       SourceRegistry,
				Confidence:   1.0,
			})
		}
	}
	return out
}

func (r *Registry) put(ticker, date string, ent entry) {
	if r.entries[ticker] == nil {
		r.entries[ticker] = make(map[string]entry)
	}
	r.entries[ticker][date] = ent
}

func (r *Registry) putUser(ticker, date string, ent entry) {
	if r.user[ticker] == nil {
		r.user[ticker] = make(map[string]entry)
	}
	r.user[ticker][date] = ent
}

// persistLocked writes the user table back to the registry file. Caller holds
// the write lock.
func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.user, "", "  ")
	if err != nil {
		return eris.Wrap(err, "fiscal: marshal registry file")
	}
	if err := os.WriteFile(r.file, data, 0o644); err != nil {
		return eris.Wrapf(err, "fiscal: write registry file %s", r.file)
	}
	return nil
}
