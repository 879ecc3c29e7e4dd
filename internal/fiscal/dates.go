package fiscal

import (
	"strings"
	"time"

	"github.com/sells-group/edgar-llm/internal/model"
)

// periodEndLayouts are the date forms observed across EDGAR metadata and
// filing headers. Order matters: unambiguous ISO forms first, then the
// US-style forms.
var periodEndLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
}

// NormalizePeriodEnd parses a raw period-end date in any accepted form and
// returns it as YYYY-MM-DD. Anything unparseable is an InvalidDateFormatError.
func NormalizePeriodEnd(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &model.InvalidDateFormatError{Input: raw}
	}
	for _, layout := range periodEndLayouts {
		t, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		return t.Format("2006-01-02"), nil
	}
	return "", &model.InvalidDateFormatError{Input: raw}
}
