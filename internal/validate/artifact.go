package validate

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// artifactRowRe matches normalized balance-sheet rows in a published artifact:
// Balance Sheet|us-gaap:Assets|352755000000|c-3|As of 2022-12-31
var artifactRowRe = regexp.MustCompile(
	`(?m)^Balance Sheet\s*\|\s*([A-Za-z0-9:._-]+)\s*\|\s*(-?[0-9][0-9,.]*)\s*\|\s*([^|]+?)\s*\|\s*As of (\d{4}-\d{2}-\d{2})\s*$`)

// CheckArtifact re-runs the balance-sheet equation against the normalized rows
// of a published artifact, confirming the optimizer preserved the statement.
func CheckArtifact(content string) *Result {
	type period struct {
		ctx    string
		values map[string]decimal.Decimal
	}
	byDate := map[string]*period{}

	for _, m := range artifactRowRe.FindAllStringSubmatch(content, -1) {
		concept, raw, ctx, date := m[1], m[2], m[3], m[4]
		v, err := parseDecimal(raw)
		if err != nil {
			zap.L().Warn("unparseable artifact value",
				zap.String("concept", concept),
				zap.String("value", raw))
			continue
		}
		p, ok := byDate[date]
		if !ok {
			p = &period{ctx: ctx, values: map[string]decimal.Decimal{}}
			byDate[date] = p
		}
		p.values[concept] = v
	}

	res := &Result{Balanced: true}
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		p := byDate[date]
		pr := PeriodResult{
			Date:             date,
			ContextRef:       p.ctx,
			Assets:           p.values[conceptAssets],
			Liabilities:      p.values[conceptLiabilities],
			Equity:           p.values[conceptEquity],
			MinorityInterest: p.values[conceptMinorityInterest],
		}

		total, totalOK := p.values[conceptLiabilitiesTotal]
		if !totalOK {
			total = pr.Liabilities.Add(pr.Equity).Add(pr.MinorityInterest)
		}
		pr.Total = total

		checkEquation(&pr, res)
		_, assetsOK := p.values[conceptAssets]
		if totalOK && assetsOK {
			tol := tolerance(pr.Assets, total)
			if pr.Assets.Sub(total).Abs().GreaterThan(tol) {
				res.warn("liabilities_and_equity_mismatch", fmt.Sprintf(
					"liabilities and stockholders equity %s != assets %s as of %s",
					total, pr.Assets, date))
			}
		}

		if !pr.Balanced {
			res.Balanced = false
		}
		res.Periods = append(res.Periods, pr)
	}

	return res
}
