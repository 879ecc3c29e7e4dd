package fiscal

import "fmt"

// fiscalYear lists the verified quarter-end and year-end dates for one
// issuer fiscal year. Dates come from the filings themselves: companies on a
// 52/53-week calendar (AAPL, NVDA) end quarters on different days each year,
// which is exactly why the registry refuses to interpolate.
type fiscalYear struct {
	year   int
	q1     string
	q2     string
	q3     string
	annual string
}

var builtinYears = map[string][]fiscalYear{
	// September-ending 52/53-week calendar.
	"AAPL": {
		{2022, "2021-12-25", "2022-03-26", "2022-06-25", "2022-09-24"},
		{2023, "2022-12-31", "2023-04-01", "2023-07-01", "2023-09-30"},
		{2024, "2023-12-30", "2024-03-30", "2024-06-29", "2024-09-28"},
		{2025, "2024-12-28", "2025-03-29", "2025-06-28", "2025-09-27"},
	},
	// June 30 fiscal year end.
	"MSFT": {
		{2022, "2021-09-30", "2021-12-31", "2022-03-31", "2022-06-30"},
		{2023, "2022-09-30", "2022-12-31", "2023-03-31", "2023-06-30"},
		{2024, "2023-09-30", "2023-12-31", "2024-03-31", "2024-06-30"},
		{2025, "2024-09-30", "2024-12-31", "2025-03-31", "2025-06-30"},
	},
	// Late-January 52/53-week calendar.
	"NVDA": {
		{2022, "2021-05-02", "2021-08-01", "2021-10-31", "2022-01-30"},
		{2023, "2022-05-01", "2022-07-31", "2022-10-30", "2023-01-29"},
		{2024, "2023-04-30", "2023-07-30", "2023-10-29", "2024-01-28"},
		{2025, "2024-04-28", "2024-07-28", "2024-10-27", "2025-01-26"},
	},
	// Calendar-year issuers.
	"GOOGL": calendarYears(2022, 2025),
	"AMZN":  calendarYears(2022, 2025),
	"TSLA":  calendarYears(2022, 2025),
}

func calendarYears(first, last int) []fiscalYear {
	var years []fiscalYear
	for y := first; y <= last; y++ {
		years = append(years, fiscalYear{
			year:   y,
			q1:     dateOf(y, "03-31"),
			q2:     dateOf(y, "06-30"),
			q3:     dateOf(y, "09-30"),
			annual: dateOf(y, "12-31"),
		})
	}
	return years
}

func dateOf(year int, monthDay string) string {
	return fmt.Sprintf("%d-%s", year, monthDay)
}

// builtinEntries expands the per-year tables into the date-keyed form the
// registry looks up.
func builtinEntries() map[string]map[string]entry {
	out := make(map[string]map[string]entry, len(builtinYears))
	for ticker, years := range builtinYears {
		tbl := make(map[string]entry, len(years)*4)
		for _, fy := range years {
			tbl[fy.q1] = entry{FiscalYear: fy.year, FiscalPeriod: PeriodQ1}
			tbl[fy.q2] = entry{FiscalYear: fy.year, FiscalPeriod: PeriodQ2}
			tbl[fy.q3] = entry{FiscalYear: fy.year, FiscalPeriod: PeriodQ3}
			tbl[fy.annual] = entry{FiscalYear: fy.year, FiscalPeriod: PeriodAnnual}
		}
		out[ticker] = tbl
	}
	return out
}
