// Package validate checks the balance-sheet accounting equation and the
// internal references of an extracted filing. Everything it finds is a
// warning for the filing's data-integrity record; validation never blocks
// publication.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/model"
	"github.com/sells-group/edgar-llm/internal/xbrl"
)

const (
	conceptAssets           = "us-gaap:Assets"
	conceptLiabilities      = "us-gaap:Liabilities"
	conceptEquity           = "us-gaap:StockholdersEquity"
	conceptMinorityInterest = "us-gaap:MinorityInterest"
	conceptLiabilitiesTotal = "us-gaap:LiabilitiesAndStockholdersEquity"
)

// tolFactor is the 0.1% relative tolerance applied to the larger side of the
// accounting equation.
var tolFactor = decimal.RequireFromString("0.001")

// PeriodResult is the equation check for one reporting date.
type PeriodResult struct {
	Date             string          `json:"date"`
	ContextRef       string          `json:"context_ref"`
	Assets           decimal.Decimal `json:"assets"`
	Liabilities      decimal.Decimal `json:"liabilities"`
	Equity           decimal.Decimal `json:"equity"`
	MinorityInterest decimal.Decimal `json:"minority_interest"`
	Total            decimal.Decimal `json:"total"`
	Derived          []string        `json:"derived,omitempty"`
	Balanced         bool            `json:"balanced"`
}

// Result aggregates the period checks and reference diagnostics for one filing.
type Result struct {
	Periods  []PeriodResult            `json:"periods"`
	Warnings []model.ValidationWarning `json:"warnings,omitempty"`
	Balanced bool                      `json:"balanced"`
}

func (r *Result) warn(code, detail string) {
	r.Warnings = append(r.Warnings, model.ValidationWarning{Code: code, Detail: detail})
}

// Check runs the reference checks and the balance-sheet equation against every
// primary reporting date of the document.
func Check(doc *xbrl.Document) *Result {
	res := &Result{Balanced: true}
	checkReferences(doc, res)

	primary := primaryContexts(doc)
	dates := make([]string, 0, len(primary))
	for date := range primary {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		ctx := primary[date]
		p := PeriodResult{Date: date, ContextRef: ctx}

		var aOK, lOK, eOK bool
		p.Assets, aOK = factValue(doc, conceptAssets, ctx)
		p.Liabilities, lOK = factValue(doc, conceptLiabilities, ctx)
		p.Equity, eOK = factValue(doc, conceptEquity, ctx)
		p.MinorityInterest, _ = factValue(doc, conceptMinorityInterest, ctx)

		deriveMissing(&p, aOK, lOK, eOK)

		total, totalOK := factValue(doc, conceptLiabilitiesTotal, ctx)
		if !totalOK {
			total = p.Liabilities.Add(p.Equity).Add(p.MinorityInterest)
		}
		p.Total = total

		checkEquation(&p, res)
		if totalOK && aOK {
			tol := tolerance(p.Assets, total)
			if p.Assets.Sub(total).Abs().GreaterThan(tol) {
				res.warn("liabilities_and_equity_mismatch", fmt.Sprintf(
					"liabilities and stockholders equity %s != assets %s as of %s",
					total, p.Assets, date))
			}
		}

		if !p.Balanced {
			res.Balanced = false
		}
		res.Periods = append(res.Periods, p)
	}

	zap.L().Debug("balance sheet validated",
		zap.Int("periods", len(res.Periods)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Bool("balanced", res.Balanced))
	return res
}

// deriveMissing completes the equation when exactly one of assets, liabilities
// or equity is absent. Derived values are display-only and never overwrite a
// reported fact.
func deriveMissing(p *PeriodResult, aOK, lOK, eOK bool) {
	missing := 0
	for _, ok := range []bool{aOK, lOK, eOK} {
		if !ok {
			missing++
		}
	}
	if missing != 1 {
		return
	}
	switch {
	case !aOK:
		p.Assets = p.Liabilities.Add(p.Equity).Add(p.MinorityInterest)
		p.Derived = append(p.Derived, conceptAssets)
	case !lOK:
		p.Liabilities = p.Assets.Sub(p.Equity).Sub(p.MinorityInterest)
		p.Derived = append(p.Derived, conceptLiabilities)
	case !eOK:
		p.Equity = p.Assets.Sub(p.Liabilities).Sub(p.MinorityInterest)
		p.Derived = append(p.Derived, conceptEquity)
	}
}

// checkEquation applies the tolerance to assets versus liabilities + equity +
// minority interest, accepting the statement when liabilities already include
// equity.
func checkEquation(p *PeriodResult, res *Result) {
	sum := p.Liabilities.Add(p.Equity).Add(p.MinorityInterest)
	tol := tolerance(p.Assets, sum)

	switch {
	case p.Assets.Sub(sum).Abs().LessThanOrEqual(tol):
		p.Balanced = true
	case p.Assets.Sub(p.Liabilities).Abs().LessThanOrEqual(tol):
		p.Balanced = true
		res.warn("liabilities_include_equity", fmt.Sprintf(
			"assets equal liabilities as of %s; liabilities may already include equity", p.Date))
	default:
		p.Balanced = false
		res.warn("balance_sheet_imbalance", fmt.Sprintf(
			"assets %s != liabilities %s + equity %s + minority interest %s as of %s",
			p.Assets, p.Liabilities, p.Equity, p.MinorityInterest, p.Date))
	}
}

func tolerance(a, b decimal.Decimal) decimal.Decimal {
	return decimal.Max(a.Abs(), b.Abs()).Mul(tolFactor)
}

// checkReferences confirms every fact resolves its context and unit ids.
// Each dangling id is reported once.
func checkReferences(doc *xbrl.Document, res *Result) {
	seen := map[string]bool{}
	for _, f := range doc.Facts {
		if _, ok := doc.Contexts[f.ContextRef]; !ok {
			key := "c\x00" + f.ContextRef
			if !seen[key] {
				seen[key] = true
				res.warn("unresolved_context_ref", fmt.Sprintf(
					"%s references undefined context %q", f.Concept, f.ContextRef))
			}
		}
		if f.UnitRef == "" {
			continue
		}
		if _, ok := doc.Units[f.UnitRef]; !ok {
			key := "u\x00" + f.UnitRef
			if !seen[key] {
				seen[key] = true
				res.warn("unresolved_unit_ref", fmt.Sprintf(
					"%s references undefined unit %q", f.Concept, f.UnitRef))
			}
		}
	}
}

// primaryContexts picks, for each reporting date, the context carrying the
// largest total assets. Segment contexts lose to the consolidated one.
func primaryContexts(doc *xbrl.Document) map[string]string {
	type best struct {
		ctx   string
		value decimal.Decimal
	}
	byDate := map[string]best{}

	for _, f := range doc.Facts {
		if f.Concept != conceptAssets {
			continue
		}
		v, err := parseDecimal(f.Value)
		if err != nil {
			zap.L().Warn("unparseable assets value",
				zap.String("context_ref", f.ContextRef),
				zap.String("value", f.Value))
			continue
		}
		date := dateFromContext(doc, f.ContextRef)
		if date == "" {
			continue
		}
		if cur, ok := byDate[date]; !ok || v.GreaterThan(cur.value) {
			byDate[date] = best{ctx: f.ContextRef, value: v}
		}
	}

	out := make(map[string]string, len(byDate))
	for date, b := range byDate {
		out[date] = b.ctx
	}
	return out
}

var (
	instantRefRe  = regexp.MustCompile(`_I(\d{8})`)
	durationRefRe = regexp.MustCompile(`_D\d{8}[-_](\d{8})`)
	plainDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// dateFromContext resolves a context reference to its period end date, falling
// back to the date embedded in the reference itself when the context is not
// declared.
func dateFromContext(doc *xbrl.Document, ref string) string {
	if ctx, ok := doc.Contexts[ref]; ok {
		if ctx.Instant != "" {
			return ctx.Instant
		}
		if ctx.EndDate != "" {
			return ctx.EndDate
		}
	}
	if m := instantRefRe.FindStringSubmatch(ref); m != nil {
		return expandDate(m[1])
	}
	if m := durationRefRe.FindStringSubmatch(ref); m != nil {
		return expandDate(m[1])
	}
	if plainDateRe.MatchString(ref) {
		return ref
	}
	return ""
}

func expandDate(yyyymmdd string) string {
	return yyyymmdd[:4] + "-" + yyyymmdd[4:6] + "-" + yyyymmdd[6:8]
}

func factValue(doc *xbrl.Document, concept, contextRef string) (decimal.Decimal, bool) {
	for _, f := range doc.Facts {
		if f.Concept != concept || f.ContextRef != contextRef {
			continue
		}
		v, err := parseDecimal(f.Value)
		if err != nil {
			return decimal.Zero, false
		}
		return v, true
	}
	return decimal.Zero, false
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), "$", ""))
	if s == "" {
		return decimal.Zero, eris.New("validate: empty numeric value")
	}
	return decimal.NewFromString(s)
}
