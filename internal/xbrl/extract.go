package xbrl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/edgar-llm/internal/model"
)

// ExtractOptions carries the context-id handlers (built once at startup) and
// the descriptor's period end date used for synthetic contexts.
type ExtractOptions struct {
	Handlers  []FormatHandler
	PeriodEnd string
}

// Extract detects the document flavor, parses it, and repairs what it can.
// Documents with neither facts nor resources are rejected as permanent
// failures; a missing resources section alone degrades to synthetic contexts.
func Extract(data []byte, srcURL string, opts ExtractOptions) (*Document, error) {
	var doc *Document
	switch Detect(data) {
	case KindInline:
		doc = parseInline(data, srcURL)
	case KindInstance:
		parsed, err := parseInstance(data, srcURL)
		if err != nil {
			return nil, err
		}
		doc = parsed
	default:
		reason := "document is neither inline XBRL nor an XBRL instance"
		if looksLikeHTML(data) {
			reason = "HTML document carries no inline XBRL markers"
		}
		return nil, &model.PermanentExtractError{URL: srcURL, Reason: reason}
	}

	if len(doc.Facts) == 0 && len(doc.Contexts) == 0 {
		return nil, &model.PermanentExtractError{URL: srcURL, Reason: "no facts and no resources section"}
	}

	postProcess(doc, opts)
	logInlineStats(doc)
	return doc, nil
}

func postProcess(doc *Document, opts ExtractOptions) {
	if len(doc.Contexts) == 0 && len(doc.Facts) > 0 {
		synthesizeAllContexts(doc, opts)
	}

	repairOrphans(doc, opts)

	missingUnit := 0
	for i := range doc.Facts {
		if doc.Facts[i].Kind == FactNumeric && doc.Facts[i].UnitRef == "" {
			doc.Facts[i].Kind = FactNonNumeric
			missingUnit++
		}
	}
	if missingUnit > 0 {
		doc.warn("numeric_missing_unit", fmt.Sprintf("%d numeric facts lack a unit reference", missingUnit))
	}

	if len(doc.Facts) == 0 {
		doc.warn("zero_facts", "resources parsed but the document carries no facts")
	}
}

// synthesizeAllContexts covers documents whose resources section is missing
// entirely. Each distinct context ref gets a context decoded from its id when
// a handler recognizes it, otherwise an instant at the descriptor period end.
func synthesizeAllContexts(doc *Document, opts ExtractOptions) {
	for _, ref := range distinctContextRefs(doc) {
		doc.Contexts[ref] = contextFromID(ref, opts)
	}
	doc.ContextsSynthetic = true
	doc.warn("synthetic_contexts", "resources section missing; contexts synthesized from ids and period end date")
}

// repairOrphans resolves fact refs that point at no known context. Ids a
// handler recognizes become synthetic contexts; the rest are recorded.
func repairOrphans(doc *Document, opts ExtractOptions) {
	var orphans []string
	for _, ref := range distinctContextRefs(doc) {
		if _, ok := doc.Contexts[ref]; ok {
			continue
		}
		if _, _, ok := ResolvePeriod(opts.Handlers, ref); ok {
			doc.Contexts[ref] = contextFromID(ref, opts)
			continue
		}
		orphans = append(orphans, ref)
	}
	for _, ref := range orphans {
		doc.warn("orphan_fact", "facts reference undefined context "+ref)
	}
}

func contextFromID(ref string, opts ExtractOptions) Context {
	c := Context{ID: ref, Synthetic: true}
	if p, _, ok := ResolvePeriod(opts.Handlers, ref); ok {
		c.Instant = p.Instant
		c.StartDate = p.StartDate
		c.EndDate = p.EndDate
	}
	if c.Instant == "" && c.StartDate == "" && opts.PeriodEnd != "" {
		c.Instant = opts.PeriodEnd
	}
	return c
}

func distinctContextRefs(doc *Document) []string {
	seen := make(map[string]bool)
	for _, f := range doc.Facts {
		if f.ContextRef != "" {
			seen[f.ContextRef] = true
		}
	}
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// normalizeFactValue produces the canonical value string. Numeric facts get
// commas and currency markers stripped, parentheses or the sign attribute
// applied, and the inline scale shift performed. Values that refuse to parse
// keep their raw text.
func normalizeFactValue(f Fact, raw string, doc *Document) string {
	if f.Kind != FactNumeric {
		return raw
	}
	v, ok := normalizeNumeric(raw, f.Sign, f.Scale)
	if !ok {
		if raw != "" {
			doc.warn("unparsed_numeric", f.Concept+": "+truncate(raw, 40))
		}
		return raw
	}
	return v
}

func normalizeNumeric(raw, sign string, scale int) (string, bool) {
	s := strings.TrimSpace(raw)
	replacer := strings.NewReplacer(",", "", "$", "", " ", "", " ", "", " ", "")
	s = replacer.Replace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	switch s {
	case "", "-", "–", "—":
		return "", true
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", false
	}
	// The sign attribute is authoritative when present; parentheses are only
	// presentation.
	if sign == "-" {
		d = d.Abs().Neg()
	} else if negative {
		d = d.Neg()
	}
	if scale != 0 {
		d = d.Shift(int32(scale))
	}
	return d.String(), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
