// Package xbrl extracts tagged facts, contexts and units from SEC filings in
// inline XBRL (HTML) or raw XBRL instance form.
package xbrl

import (
	"fmt"

	"github.com/sells-group/edgar-llm/internal/model"
)

// DocKind identifies the document flavor the detector recognized.
type DocKind int

const (
	KindUnknown DocKind = iota
	KindInline
	KindInstance
)

func (k DocKind) String() string {
	switch k {
	case KindInline:
		return "inline-xbrl"
	case KindInstance:
		return "xbrl-instance"
	default:
		return "unknown"
	}
}

// FactKind distinguishes numeric from non-numeric facts.
type FactKind int

const (
	FactNonNumeric FactKind = iota
	FactNumeric
)

func (k FactKind) String() string {
	if k == FactNumeric {
		return "numeric"
	}
	return "non-numeric"
}

// Fact is a single tagged value from the filing.
type Fact struct {
	Kind       FactKind `json:"kind"`
	Concept    string   `json:"concept"` // QName, e.g. us-gaap:Assets
	ContextRef string   `json:"context_ref"`
	UnitRef    string   `json:"unit_ref,omitempty"`
	Scale      int      `json:"scale,omitempty"`
	Decimals   string   `json:"decimals,omitempty"`
	Sign       string   `json:"sign,omitempty"`
	Format     string   `json:"format,omitempty"`
	RawValue   string   `json:"raw_value"`
	Value      string   `json:"value"` // normalized (sign and scale applied)
	Hidden     bool     `json:"hidden,omitempty"`
}

// Key identifies a fact for round-trip verification.
func (f Fact) Key() FactKey {
	return FactKey{Concept: f.Concept, ContextRef: f.ContextRef, UnitRef: f.UnitRef}
}

// FactKey is the (concept, context, unit) identity of a fact.
type FactKey struct {
	Concept    string
	ContextRef string
	UnitRef    string
}

func (k FactKey) String() string {
	return fmt.Sprintf("%s @%s %s", k.Concept, k.ContextRef, k.UnitRef)
}

// Context is a reporting period, optionally qualified by dimensions.
type Context struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity,omitempty"`
	Instant    string            `json:"instant,omitempty"`
	StartDate  string            `json:"start_date,omitempty"`
	EndDate    string            `json:"end_date,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	Synthetic  bool              `json:"synthetic,omitempty"`
}

// IsInstant reports whether the context covers a point in time.
func (c Context) IsInstant() bool {
	return c.Instant != ""
}

// Label renders the human-readable period label used in artifacts.
func (c Context) Label() string {
	var label string
	switch {
	case c.Instant != "":
		label = "As of " + c.Instant
	case c.StartDate != "" && c.EndDate != "":
		label = fmt.Sprintf("Period %s to %s", c.StartDate, c.EndDate)
	default:
		label = c.ID
	}
	if len(c.Dimensions) > 0 {
		label += " " + dimensionSuffix(c.Dimensions)
	}
	return label
}

// Unit declares the measure facts are expressed in.
type Unit struct {
	ID          string `json:"id"`
	Measure     string `json:"measure,omitempty"`
	Numerator   string `json:"numerator,omitempty"`
	Denominator string `json:"denominator,omitempty"`
}

// Label renders the unit for artifacts, e.g. "iso4217:USD" or "iso4217:USD/shares".
func (u Unit) Label() string {
	if u.Numerator != "" && u.Denominator != "" {
		return u.Numerator + "/" + u.Denominator
	}
	return u.Measure
}

// Document is the full extraction result for one filing.
type Document struct {
	SourceURL         string
	Kind              DocKind
	Facts             []Fact
	Contexts          map[string]Context
	Units             map[string]Unit
	SchemaRefs        []string
	LinkbaseRefs      []string
	ContextsSynthetic bool
	Warnings          []model.ValidationWarning
}

// HiddenFactCount counts facts extracted from the ix:hidden section.
func (d *Document) HiddenFactCount() int {
	n := 0
	for _, f := range d.Facts {
		if f.Hidden {
			n++
		}
	}
	return n
}

// DEIValue returns the value of the first dei fact with the given local name,
// e.g. DEIValue("DocumentFiscalYearFocus"). Empty when the filing does not
// carry the tag.
func (d *Document) DEIValue(local string) string {
	want := "dei:" + local
	for i := range d.Facts {
		if d.Facts[i].Concept == want && d.Facts[i].Value != "" {
			return d.Facts[i].Value
		}
	}
	return ""
}

func (d *Document) warn(code, detail string) {
	d.Warnings = append(d.Warnings, model.ValidationWarning{Code: code, Detail: detail})
}
