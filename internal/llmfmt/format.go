// Package llmfmt renders an extracted filing into the compact text artifact
// consumed by language models. Emit produces a verbose draft with the original
// context ids and wide statement tables; Optimize then applies the size passes
// that yield the published form.
package llmfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/edgar-llm/internal/hierarchy"
	"github.com/sells-group/edgar-llm/internal/model"
	"github.com/sells-group/edgar-llm/internal/xbrl"
)

// Metadata identifies the filing a draft is rendered for. All fields are
// optional except Ticker, FilingType and PeriodEnd, which form the @DOCUMENT
// tag.
type Metadata struct {
	Ticker       string
	CompanyName  string
	CIK          string
	FilingType   model.FilingType
	FilingDate   string
	PeriodEnd    string
	FiscalYear   int
	FiscalPeriod string
	Source       string
}

// DocumentTag renders the @DOCUMENT identifier, e.g. "AAPL-10-Q-2022-12-31".
func (m Metadata) DocumentTag() string {
	return fmt.Sprintf("%s-%s-%s", m.Ticker, m.FilingType, m.PeriodEnd)
}

// Section is one narrative section extracted from the filing HTML, appended
// after the fact sections of the draft.
type Section struct {
	ID    string // e.g. ITEM_1A_RISK_FACTORS
	Title string // e.g. Risk Factors
	Text  string
}

// sectionNames maps statement types to the @SECTION headers used in the
// individual facts section.
var sectionNames = map[hierarchy.StatementType]string{
	hierarchy.StatementBalanceSheet: "BALANCE_SHEET",
	hierarchy.StatementIncome:       "INCOME_STATEMENT",
	hierarchy.StatementCashFlow:     "CASH_FLOW",
	hierarchy.StatementEquity:       "STATEMENT_OF_EQUITY",
	hierarchy.StatementOther:        "OTHER_FINANCIAL",
}

// Emit renders the draft artifact: metadata, context and unit dictionaries,
// one wide table per populated statement, the statement-to-concept mapping,
// every fact as an @CONCEPT block, and the narrative sections. The draft uses
// the filing's original context ids throughout; Optimize rewrites them.
func Emit(doc *xbrl.Document, stmts *hierarchy.StatementMap, meta Metadata, sections []Section) string {
	var b strings.Builder
	writeMetadata(&b, meta)
	writeContexts(&b, doc)
	writeUnits(&b, doc)
	tables := buildTables(doc, stmts)
	writeStatements(&b, doc, tables)
	writeMapping(&b, tables)
	writeFacts(&b, doc, stmts)
	writeSections(&b, sections)
	return b.String()
}

func writeMetadata(b *strings.Builder, meta Metadata) {
	b.WriteString("@DOCUMENT_METADATA\n")
	fmt.Fprintf(b, "@DOCUMENT: %s\n", meta.DocumentTag())
	if meta.CompanyName != "" {
		fmt.Fprintf(b, "@COMPANY: %s\n", meta.CompanyName)
	}
	if meta.CIK != "" {
		fmt.Fprintf(b, "@CIK: %s\n", meta.CIK)
	}
	fmt.Fprintf(b, "@FILING_TYPE: %s\n", meta.FilingType)
	if meta.FilingDate != "" {
		fmt.Fprintf(b, "@FILING_DATE: %s\n", meta.FilingDate)
	}
	fmt.Fprintf(b, "@PERIOD_END_DATE: %s\n", meta.PeriodEnd)
	if meta.FiscalYear != 0 {
		fmt.Fprintf(b, "@FISCAL_YEAR: %d\n", meta.FiscalYear)
	}
	if meta.FiscalPeriod != "" {
		fmt.Fprintf(b, "@FISCAL_PERIOD: %s\n", meta.FiscalPeriod)
	}
	if meta.Source != "" {
		fmt.Fprintf(b, "@SOURCE: %s\n", meta.Source)
	}
	b.WriteString("\n")
}

func writeContexts(b *strings.Builder, doc *xbrl.Document) {
	if len(doc.Contexts) == 0 {
		return
	}
	b.WriteString("@DATA_DICTIONARY: CONTEXTS\n")
	for _, id := range sortedContextIDs(doc) {
		fmt.Fprintf(b, "@CONTEXT_DEF: %s | @LABEL: %s\n", id, doc.Contexts[id].Label())
	}
	b.WriteString("\n")
}

func writeUnits(b *strings.Builder, doc *xbrl.Document) {
	if len(doc.Units) == 0 {
		return
	}
	ids := make([]string, 0, len(doc.Units))
	for id := range doc.Units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b.WriteString("@UNITS\n")
	for _, id := range ids {
		fmt.Fprintf(b, "@UNIT_DEF: %s | %s\n", id, doc.Units[id].Label())
	}
	b.WriteString("\n")
}

func sortedContextIDs(doc *xbrl.Document) []string {
	ids := make([]string, 0, len(doc.Contexts))
	for id := range doc.Contexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// statementTable is one wide statement table: rows are concepts in hierarchy
// order, columns are the undimensioned contexts the statement's facts use.
type statementTable struct {
	stmt     hierarchy.StatementType
	concepts []string
	depths   map[string]int
	contexts []string
	cells    map[string]map[string]string // concept -> context -> value
}

// buildTables groups primary numeric facts into per-statement wide tables.
// Dimensioned contexts are left out: segment breakdowns belong in the
// individual facts section, not the statement tables.
func buildTables(doc *xbrl.Document, stmts *hierarchy.StatementMap) map[hierarchy.StatementType]*statementTable {
	tables := make(map[hierarchy.StatementType]*statementTable)
	for _, f := range doc.Facts {
		if f.Kind != xbrl.FactNumeric || f.Value == "" {
			continue
		}
		ctx, ok := doc.Contexts[f.ContextRef]
		if !ok || len(ctx.Dimensions) > 0 {
			continue
		}
		st, depth := stmts.Level(f.Concept)
		if st == hierarchy.StatementOther {
			continue
		}
		t := tables[st]
		if t == nil {
			t = &statementTable{
				stmt:   st,
				depths: make(map[string]int),
				cells:  make(map[string]map[string]string),
			}
			tables[st] = t
		}
		if _, seen := t.depths[f.Concept]; !seen {
			t.concepts = append(t.concepts, f.Concept)
			t.depths[f.Concept] = depth
		}
		row := t.cells[f.Concept]
		if row == nil {
			row = make(map[string]string)
			t.cells[f.Concept] = row
		}
		if _, seen := row[f.ContextRef]; !seen {
			row[f.ContextRef] = f.Value
		}
		t.contexts = appendUnique(t.contexts, f.ContextRef)
	}
	for _, t := range tables {
		sort.Strings(t.contexts)
		sort.SliceStable(t.concepts, func(i, j int) bool {
			a, b := t.concepts[i], t.concepts[j]
			if t.depths[a] != t.depths[b] {
				return t.depths[a] < t.depths[b]
			}
			return a < b
		})
	}
	return tables
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func writeStatements(b *strings.Builder, doc *xbrl.Document, tables map[hierarchy.StatementType]*statementTable) {
	for _, st := range hierarchy.StatementOrder {
		t := tables[st]
		if t == nil || len(t.concepts) == 0 {
			continue
		}
		fmt.Fprintf(b, "@FINANCIAL_STATEMENT: %s\n", st)
		labels := make([]string, 0, len(t.contexts))
		for _, id := range t.contexts {
			labels = append(labels, fmt.Sprintf("%s (%s)", id, doc.Contexts[id].Label()))
		}
		fmt.Fprintf(b, "@CONTEXT_LABELS: %s\n", strings.Join(labels, " | "))
		fmt.Fprintf(b, "Line Item | %s\n", strings.Join(t.contexts, " | "))
		for _, concept := range t.concepts {
			cells := make([]string, 0, len(t.contexts)+1)
			cells = append(cells, concept)
			for _, id := range t.contexts {
				v := t.cells[concept][id]
				if v == "" {
					v = "-"
				}
				cells = append(cells, v)
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

// writeMapping lists the statement concepts grouped by namespace prefix so a
// model can see which taxonomy each statement draws on.
func writeMapping(b *strings.Builder, tables map[hierarchy.StatementType]*statementTable) {
	any := false
	for _, t := range tables {
		if t != nil && len(t.concepts) > 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}
	b.WriteString("@FINANCIAL_STATEMENTS_MAPPING\n")
	for _, st := range hierarchy.StatementOrder {
		t := tables[st]
		if t == nil || len(t.concepts) == 0 {
			continue
		}
		fmt.Fprintf(b, "@STATEMENT: %s\n", st)
		byNS := make(map[string][]string)
		for _, concept := range t.concepts {
			ns, local := splitQName(concept)
			byNS[ns] = append(byNS[ns], local)
		}
		nss := make([]string, 0, len(byNS))
		for ns := range byNS {
			nss = append(nss, ns)
		}
		sort.Strings(nss)
		for _, ns := range nss {
			locals := byNS[ns]
			sort.Strings(locals)
			fmt.Fprintf(b, "%s: %s\n", ns, strings.Join(locals, ", "))
		}
		b.WriteString("\n")
	}
}

func splitQName(concept string) (ns, local string) {
	if i := strings.Index(concept, ":"); i >= 0 {
		return concept[:i], concept[i+1:]
	}
	return "", concept
}

// factEntry is one deduplicated @CONCEPT block, with its section rank for
// ordering.
type factEntry struct {
	rank                             int
	concept, value, ctx, unit, decim string
}

func writeFacts(b *strings.Builder, doc *xbrl.Document, stmts *hierarchy.StatementMap) {
	if len(doc.Facts) == 0 {
		return
	}
	rank := make(map[hierarchy.StatementType]int, len(hierarchy.StatementOrder))
	for i, st := range hierarchy.StatementOrder {
		rank[st] = i
	}
	seen := make(map[factEntry]bool, len(doc.Facts))
	entries := make([]factEntry, 0, len(doc.Facts))
	for _, f := range doc.Facts {
		st, _ := stmts.Level(f.Concept)
		e := factEntry{
			rank:    rank[st],
			concept: f.Concept,
			value:   f.Value,
			ctx:     f.ContextRef,
			unit:    f.UnitRef,
			decim:   f.Decimals,
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.concept != b.concept {
			return a.concept < b.concept
		}
		if a.ctx != b.ctx {
			return a.ctx < b.ctx
		}
		if a.unit != b.unit {
			return a.unit < b.unit
		}
		return a.value < b.value
	})

	b.WriteString("@INDIVIDUAL_FACTS_SECTION\n\n")
	current := -1
	for _, e := range entries {
		if e.rank != current {
			current = e.rank
			fmt.Fprintf(b, "@SECTION: %s\n\n", sectionNames[hierarchy.StatementOrder[e.rank]])
		}
		fmt.Fprintf(b, "@CONCEPT: %s\n", e.concept)
		fmt.Fprintf(b, "@VALUE: %s\n", e.value)
		fmt.Fprintf(b, "@CONTEXT_REF: %s\n", e.ctx)
		if e.unit != "" {
			fmt.Fprintf(b, "@UNIT_REF: %s\n", e.unit)
		}
		if e.decim != "" {
			fmt.Fprintf(b, "@DECIMALS: %s\n", e.decim)
		}
		b.WriteString("\n")
	}
}

func writeSections(b *strings.Builder, sections []Section) {
	for _, s := range sections {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		fmt.Fprintf(b, "@SECTION: %s\n\n", s.ID)
		title := s.Title
		if title == "" {
			title = s.ID
		}
		fmt.Fprintf(b, "@NARRATIVE_TEXT: %s\n", title)
		b.WriteString(strings.TrimRight(s.Text, "\n"))
		b.WriteString("\n\n")
	}
}
