package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-llm/internal/model"
)

// LoadManifest reads filing descriptors from a JSON array or a JSON Lines
// file, normalizes each and rejects the whole file on the first invalid
// entry.
func LoadManifest(path string) ([]model.FilingDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read manifest %s", path)
	}
	descriptors, err := parseManifest(data)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse manifest %s", path)
	}
	for i := range descriptors {
		descriptors[i].Normalize()
		if err := descriptors[i].Validate(); err != nil {
			return nil, eris.Wrapf(err, "pipeline: manifest %s entry %d", path, i)
		}
	}
	return descriptors, nil
}

func parseManifest(data []byte) ([]model.FilingDescriptor, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var descriptors []model.FilingDescriptor
		if err := json.Unmarshal(trimmed, &descriptors); err != nil {
			return nil, err
		}
		return descriptors, nil
	}
	// JSON Lines: one descriptor object per line.
	var descriptors []model.FilingDescriptor
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for dec.More() {
		var d model.FilingDescriptor
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// Filter narrows a manifest to the requested tickers, filing types and fiscal
// window. Zero values mean no restriction.
type Filter struct {
	Tickers  []string
	Types    []string
	YearFrom int
	YearTo   int
}

// Apply returns the descriptors that pass every set restriction. The year
// window tests the period end date's calendar year, falling back to the
// filing date when the descriptor carries no period end.
func (f Filter) Apply(descriptors []model.FilingDescriptor) []model.FilingDescriptor {
	tickers := toSet(f.Tickers)
	types := toSet(f.Types)

	var out []model.FilingDescriptor
	for _, d := range descriptors {
		if len(tickers) > 0 && !tickers[strings.ToUpper(d.Ticker)] {
			continue
		}
		if len(types) > 0 && !types[strings.ToUpper(string(d.FilingType))] {
			continue
		}
		if f.YearFrom > 0 || f.YearTo > 0 {
			year := descriptorYear(d)
			if year == 0 {
				continue
			}
			if f.YearFrom > 0 && year < f.YearFrom {
				continue
			}
			if f.YearTo > 0 && year > f.YearTo {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

func descriptorYear(d model.FilingDescriptor) int {
	for _, date := range []string{d.PeriodEndDate, d.FilingDate} {
		if len(date) >= 4 {
			if y, err := strconv.Atoi(date[:4]); err == nil {
				return y
			}
		}
	}
	return 0
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			set[v] = true
		}
	}
	return set
}
