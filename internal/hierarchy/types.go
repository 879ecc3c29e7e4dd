// Package hierarchy resolves the financial statement structure of a filing
// from its XBRL linkbases: which extended link role is which statement, how
// concepts nest, and how deep each concept sits. When no usable linkbase is
// available it falls back to concept-name classification over known
// top-level US-GAAP concepts.
package hierarchy

import "strings"

// StatementType names the financial statement a role or concept belongs to.
type StatementType string

const (
	StatementBalanceSheet StatementType = "Balance Sheet"
	StatementIncome       StatementType = "Income Statement"
	StatementCashFlow     StatementType = "Cash Flow Statement"
	StatementEquity       StatementType = "Statement of Equity"
	StatementOther        StatementType = "Other"
)

// StatementOrder is the fixed emission order for artifacts.
var StatementOrder = []StatementType{
	StatementBalanceSheet,
	StatementIncome,
	StatementCashFlow,
	StatementEquity,
	StatementOther,
}

// ArcKind distinguishes the linkbase an arc came from.
type ArcKind int

const (
	ArcPresentation ArcKind = iota
	ArcCalculation
	ArcDefinition
)

// Arc is one resolved parent→child relation within an extended link role.
type Arc struct {
	From    string
	To      string
	Role    string
	Arcrole string
	Kind    ArcKind
	Order   float64
	Weight  float64
}

// Key returns the identity used for arc deduplication.
func (a Arc) Key() ArcKey {
	return ArcKey{From: a.From, To: a.To, Role: a.Role}
}

// ArcKey identifies an arc by endpoints and role. Two arcs with the same key
// are the same relation regardless of which linkbase restated it.
type ArcKey struct {
	From string
	To   string
	Role string
}

// Concept is a hierarchy node as assigned to a statement.
type Concept struct {
	QName     string        `json:"qname"`
	Label     string        `json:"label,omitempty"`
	Balance   string        `json:"balance,omitempty"`
	Statement StatementType `json:"statement"`
	Depth     int           `json:"depth"`
}

// seedTopLevel lists the US-GAAP concepts that anchor each statement when
// linkbases do not say otherwise.
var seedTopLevel = map[StatementType][]string{
	StatementBalanceSheet: {
		"us-gaap:Assets",
		"us-gaap:Liabilities",
		"us-gaap:StockholdersEquity",
		"us-gaap:LiabilitiesAndStockholdersEquity",
	},
	StatementIncome: {
		"us-gaap:Revenues",
		"us-gaap:CostsAndExpenses",
		"us-gaap:OperatingIncomeLoss",
		"us-gaap:NetIncomeLoss",
	},
	StatementCashFlow: {
		"us-gaap:NetCashProvidedByUsedInOperatingActivities",
		"us-gaap:NetCashProvidedByUsedInInvestingActivities",
		"us-gaap:NetCashProvidedByUsedInFinancingActivities",
	},
	StatementEquity: {
		"us-gaap:StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest",
	},
}

// ClassifyRole maps an extended link role URI to a statement type by keyword.
// Balance-sheet terms win over income terms so "financial position" roles
// never land in the income statement.
func ClassifyRole(roleURI string) StatementType {
	role := strings.ToLower(roleURI)
	switch {
	case containsAny(role, "balance", "financialposition", "financial position"):
		return StatementBalanceSheet
	case containsAny(role, "income", "operations", "earnings", "profit", "loss"):
		return StatementIncome
	case containsAny(role, "cashflow", "cash flow"):
		return StatementCashFlow
	case containsAny(role, "equity", "stockholder", "shareholder"):
		return StatementEquity
	default:
		return StatementOther
	}
}

// ClassifyConcept maps a concept QName to a statement type by name patterns.
// Used only when no linkbase placed the concept.
func ClassifyConcept(qname string) StatementType {
	name := strings.ToLower(qname)
	switch {
	case containsAny(name, "revenue", "sales", "income", "earnings", "expense", "cost"):
		return StatementIncome
	case containsAny(name, "asset", "liabilit", "equity", "debt", "inventory", "payable", "receivable"):
		return StatementBalanceSheet
	case containsAny(name, "cashflow", "financingactivities", "investingactivities", "operatingactivities"):
		return StatementCashFlow
	default:
		return StatementOther
	}
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
