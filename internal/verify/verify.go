package verify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/xbrl"
)

// DefaultThreshold is the adjusted-completeness fraction a filing must reach.
const DefaultThreshold = 0.995

const sampleLimit = 5

// FactSample is one fact cited in the report.
type FactSample struct {
	Key           xbrl.FactKey `json:"key"`
	RawValue      string       `json:"raw_value,omitempty"`
	ArtifactValue string       `json:"artifact_value,omitempty"`
}

// Report is the outcome of comparing a raw dump with a published artifact.
type Report struct {
	RawFacts            int          `json:"raw_facts"`
	ArtifactFacts       int          `json:"artifact_facts"`
	MatchedExact        int          `json:"matched_exact"`
	MatchedByName       int          `json:"matched_by_name"`
	MissingBeforeByName int          `json:"missing_before_by_name"`
	StillMissing        []FactSample `json:"still_missing,omitempty"`
	Mismatched          []FactSample `json:"mismatched,omitempty"`
	Extra               []FactSample `json:"extra,omitempty"`

	RawConceptNames      int      `json:"raw_concept_names"`
	ArtifactConceptNames int      `json:"artifact_concept_names"`
	MissingConceptNames  []string `json:"missing_concept_names,omitempty"`
	ExtraConceptNames    int      `json:"extra_concept_names"`
}

// Completeness is the exact-match fraction.
func (r *Report) Completeness() float64 {
	if r.RawFacts == 0 {
		return 0
	}
	return float64(r.MatchedExact) / float64(r.RawFacts)
}

// AdjustedCompleteness also counts name-only matches.
func (r *Report) AdjustedCompleteness() float64 {
	if r.RawFacts == 0 {
		return 0
	}
	return float64(r.MatchedExact+r.MatchedByName) / float64(r.RawFacts)
}

// Passed reports whether adjusted completeness reaches the threshold.
func (r *Report) Passed(threshold float64) bool {
	return r.AdjustedCompleteness() >= threshold
}

// Run parses the artifact and compares it against the raw dump.
func Run(artifact string, dump *xbrl.RawDump) *Report {
	return Compare(dump, ParseArtifact(artifact))
}

// Compare matches every raw-dump fact against the artifact fact surface in two
// passes: exact key matching first, then concept-name-only matching for the
// leftovers.
func Compare(dump *xbrl.RawDump, art *Artifact) *Report {
	order := make([]xbrl.FactKey, 0, len(dump.Facts))
	raw := make(map[xbrl.FactKey]string, len(dump.Facts))
	for _, f := range dump.Facts {
		if f.Name == "" {
			continue
		}
		k := xbrl.FactKey{Concept: f.Name, ContextRef: f.ContextRef, UnitRef: f.UnitRef}
		if _, ok := raw[k]; !ok {
			order = append(order, k)
		}
		raw[k] = f.Value
	}

	rep := &Report{RawFacts: len(raw), ArtifactFacts: len(art.Facts)}

	var missing []FactSample
	for _, k := range order {
		rawVal := raw[k]
		artVal, ok := art.Facts[k]
		if !ok {
			artVal, ok = art.Rows[xbrl.FactKey{Concept: k.Concept, ContextRef: k.ContextRef}]
		}
		if !ok {
			missing = append(missing, FactSample{Key: k, RawValue: rawVal})
			continue
		}
		if valuesEqual(rawVal, artVal) {
			rep.MatchedExact++
		} else {
			rep.Mismatched = append(rep.Mismatched, FactSample{Key: k, RawValue: rawVal, ArtifactValue: artVal})
		}
	}
	rep.MissingBeforeByName = len(missing)

	pool := art.valuesByName()
	for _, s := range missing {
		matched := false
		for _, v := range pool[s.Key.Concept] {
			if valuesEqual(s.RawValue, v) {
				matched = true
				break
			}
		}
		if matched {
			rep.MatchedByName++
		} else {
			rep.StillMissing = append(rep.StillMissing, s)
		}
	}

	for k, v := range art.Facts {
		if _, ok := raw[k]; !ok {
			rep.Extra = append(rep.Extra, FactSample{Key: k, ArtifactValue: v})
		}
	}
	sort.Slice(rep.Extra, func(i, j int) bool {
		a, b := rep.Extra[i].Key, rep.Extra[j].Key
		if a.Concept != b.Concept {
			return a.Concept < b.Concept
		}
		if a.ContextRef != b.ContextRef {
			return a.ContextRef < b.ContextRef
		}
		return a.UnitRef < b.UnitRef
	})

	rawNames := map[string]bool{}
	for k := range raw {
		rawNames[k.Concept] = true
	}
	artNames := art.conceptNames()
	rep.RawConceptNames = len(rawNames)
	rep.ArtifactConceptNames = len(artNames)
	for name := range rawNames {
		if !artNames[name] {
			rep.MissingConceptNames = append(rep.MissingConceptNames, name)
		}
	}
	sort.Strings(rep.MissingConceptNames)
	for name := range artNames {
		if !rawNames[name] {
			rep.ExtraConceptNames++
		}
	}

	zap.L().Debug("verification compared",
		zap.Int("raw_facts", rep.RawFacts),
		zap.Int("matched_exact", rep.MatchedExact),
		zap.Int("matched_by_name", rep.MatchedByName),
		zap.Int("still_missing", len(rep.StillMissing)),
		zap.Float64("adjusted_completeness", rep.AdjustedCompleteness()))
	return rep
}

// valuesEqual accepts exact strings or numerically equal values after comma
// stripping.
func valuesEqual(a, b string) bool {
	if a == b {
		return true
	}
	da, errA := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(a), ",", ""))
	db, errB := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(b), ",", ""))
	return errA == nil && errB == nil && da.Equal(db)
}

// Render formats the report the way the verify command prints it.
func (r *Report) Render() string {
	var b strings.Builder
	b.WriteString("=== Verification Results ===\n")
	fmt.Fprintf(&b, "Total Raw Facts:           %d\n", r.RawFacts)
	fmt.Fprintf(&b, "Total Artifact Facts:      %d\n", r.ArtifactFacts)
	fmt.Fprintf(&b, "Matched (Exact):           %d\n", r.MatchedExact)
	fmt.Fprintf(&b, "Matched (By Name Only):    %d\n", r.MatchedByName)
	fmt.Fprintf(&b, "Missing Before Name Match: %d\n", r.MissingBeforeByName)
	fmt.Fprintf(&b, "Still Missing:             %d\n", len(r.StillMissing))
	fmt.Fprintf(&b, "Value Mismatches:          %d\n", len(r.Mismatched))
	fmt.Fprintf(&b, "Extra Facts:               %d\n", len(r.Extra))
	fmt.Fprintf(&b, "Completeness (Exact):      %.2f%%\n", r.Completeness()*100)
	fmt.Fprintf(&b, "Completeness (Adjusted):   %.2f%%\n", r.AdjustedCompleteness()*100)

	writeSamples(&b, "Still Missing Facts", r.StillMissing, func(s FactSample) string {
		return fmt.Sprintf("  %s = %s", s.Key, s.RawValue)
	})
	writeSamples(&b, "Value Mismatches", r.Mismatched, func(s FactSample) string {
		return fmt.Sprintf("  %s\n    raw:      %s\n    artifact: %s", s.Key, s.RawValue, s.ArtifactValue)
	})
	writeSamples(&b, "Extra Facts", r.Extra, func(s FactSample) string {
		return fmt.Sprintf("  %s = %s", s.Key, s.ArtifactValue)
	})

	b.WriteString("\n=== Concept Name Coverage ===\n")
	fmt.Fprintf(&b, "Unique Names in Raw:      %d\n", r.RawConceptNames)
	fmt.Fprintf(&b, "Unique Names in Artifact: %d\n", r.ArtifactConceptNames)
	fmt.Fprintf(&b, "Names Missing:            %d\n", len(r.MissingConceptNames))
	fmt.Fprintf(&b, "Names Extra:              %d\n", r.ExtraConceptNames)
	if len(r.MissingConceptNames) > 0 {
		b.WriteString("\n=== Concept Names Missing ===\n")
		limit := len(r.MissingConceptNames)
		if limit > 10 {
			limit = 10
		}
		for _, name := range r.MissingConceptNames[:limit] {
			fmt.Fprintf(&b, "  %s\n", name)
		}
		if rest := len(r.MissingConceptNames) - limit; rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}
	return b.String()
}

func writeSamples(b *strings.Builder, title string, samples []FactSample, format func(FactSample) string) {
	if len(samples) == 0 {
		return
	}
	fmt.Fprintf(b, "\n=== Sample %s ===\n", title)
	limit := len(samples)
	if limit > sampleLimit {
		limit = sampleLimit
	}
	for _, s := range samples[:limit] {
		b.WriteString(format(s))
		b.WriteString("\n")
	}
}
