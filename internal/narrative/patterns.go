package narrative

import (
	"regexp"

	"github.com/sells-group/edgar-llm/internal/model"
)

// pattern maps a heading regex to a stable section id and a readable title.
type pattern struct {
	re    *regexp.Regexp
	id    string
	title string
}

var tenKPatterns = []pattern{
	{regexp.MustCompile(`(?i)Item\s+1\.?\s*Business`), "ITEM_1_BUSINESS", "Business"},
	{regexp.MustCompile(`(?i)Item\s+1A\.?\s*Risk\s+Factors`), "ITEM_1A_RISK_FACTORS", "Risk Factors"},
	{regexp.MustCompile(`(?i)Item\s+1B\.?\s*Unresolved\s+Staff\s+Comments`), "ITEM_1B_UNRESOLVED_STAFF_COMMENTS", "Unresolved Staff Comments"},
	{regexp.MustCompile(`(?i)Item\s+2\.?\s*Properties`), "ITEM_2_PROPERTIES", "Properties"},
	{regexp.MustCompile(`(?i)Item\s+3\.?\s*Legal\s+Proceedings`), "ITEM_3_LEGAL_PROCEEDINGS", "Legal Proceedings"},
	{regexp.MustCompile(`(?i)Item\s+4\.?\s*Mine\s+Safety\s+Disclosures`), "ITEM_4_MINE_SAFETY_DISCLOSURES", "Mine Safety Disclosures"},
	{regexp.MustCompile(`(?i)Item\s+5\.?\s*Market\s+for\s+Registrant`), "ITEM_5_MARKET", "Market for Registrant's Common Equity"},
	{regexp.MustCompile(`(?i)Item\s+6\.?\s*Selected\s+Financial\s+Data`), "ITEM_6_SELECTED_FINANCIAL_DATA", "Selected Financial Data"},
	{regexp.MustCompile(`(?i)Item\s+7\.?\s*Management.*Discussion`), "ITEM_7_MD_AND_A", "Management's Discussion and Analysis"},
	{regexp.MustCompile(`(?i)Item\s+7A\.?\s*Quantitative\s+and\s+Qualitative`), "ITEM_7A_MARKET_RISK", "Quantitative and Qualitative Disclosures About Market Risk"},
	{regexp.MustCompile(`(?i)Item\s+8\.?\s*Financial\s+Statements`), "ITEM_8_FINANCIAL_STATEMENTS", "Financial Statements and Supplementary Data"},
	{regexp.MustCompile(`(?i)Item\s+9\.?\s*Changes\s+in\s+and\s+Disagreements`), "ITEM_9_DISAGREEMENTS", "Changes in and Disagreements with Accountants"},
	{regexp.MustCompile(`(?i)Item\s+9A\.?\s*Controls\s+and\s+Procedures`), "ITEM_9A_CONTROLS", "Controls and Procedures"},
	{regexp.MustCompile(`(?i)Item\s+9B\.?\s*Other\s+Information`), "ITEM_9B_OTHER_INFORMATION", "Other Information"},
	{regexp.MustCompile(`(?i)Item\s+10\.?\s*Directors`), "ITEM_10_DIRECTORS", "Directors, Executive Officers and Corporate Governance"},
	{regexp.MustCompile(`(?i)Item\s+11\.?\s*Executive\s+Compensation`), "ITEM_11_EXECUTIVE_COMPENSATION", "Executive Compensation"},
	{regexp.MustCompile(`(?i)Item\s+12\.?\s*Security\s+Ownership`), "ITEM_12_SECURITY_OWNERSHIP", "Security Ownership"},
	{regexp.MustCompile(`(?i)Item\s+13\.?\s*Certain\s+Relationships`), "ITEM_13_RELATIONSHIPS", "Certain Relationships and Related Transactions"},
	{regexp.MustCompile(`(?i)Item\s+14\.?\s*Principal\s+Accountant\s+Fees`), "ITEM_14_ACCOUNTANT_FEES", "Principal Accountant Fees and Services"},
	{regexp.MustCompile(`(?i)Item\s+15\.?\s*Exhibits`), "ITEM_15_EXHIBITS", "Exhibits and Financial Statement Schedules"},
}

var tenQPatterns = []pattern{
	{regexp.MustCompile(`(?i)Item\s+1\.?\s*Financial\s+Statements`), "ITEM_1_FINANCIAL_STATEMENTS", "Financial Statements"},
	{regexp.MustCompile(`(?i)Item\s+2\.?\s*Management.*Discussion`), "ITEM_2_MD_AND_A", "Management's Discussion and Analysis"},
	{regexp.MustCompile(`(?i)Item\s+3\.?\s*Quantitative\s+and\s+Qualitative`), "ITEM_3_MARKET_RISK", "Quantitative and Qualitative Disclosures About Market Risk"},
	{regexp.MustCompile(`(?i)Item\s+4\.?\s*Controls\s+and\s+Procedures`), "ITEM_4_CONTROLS", "Controls and Procedures"},
	{regexp.MustCompile(`(?i)Item\s+1\.?\s*Legal\s+Proceedings`), "ITEM_1_LEGAL_PROCEEDINGS", "Legal Proceedings"},
	{regexp.MustCompile(`(?i)Item\s+1A\.?\s*Risk\s+Factors`), "ITEM_1A_RISK_FACTORS", "Risk Factors"},
	{regexp.MustCompile(`(?i)Item\s+2\.?\s*Unregistered\s+Sales`), "ITEM_2_UNREGISTERED_SALES", "Unregistered Sales of Equity Securities"},
	{regexp.MustCompile(`(?i)Item\s+3\.?\s*Defaults`), "ITEM_3_DEFAULTS", "Defaults Upon Senior Securities"},
	{regexp.MustCompile(`(?i)Item\s+4\.?\s*Mine\s+Safety\s+Disclosures`), "ITEM_4_MINE_SAFETY", "Mine Safety Disclosures"},
	{regexp.MustCompile(`(?i)Item\s+5\.?\s*Other\s+Information`), "ITEM_5_OTHER_INFORMATION", "Other Information"},
	{regexp.MustCompile(`(?i)Item\s+6\.?\s*Exhibits`), "ITEM_6_EXHIBITS", "Exhibits"},
	{regexp.MustCompile(`(?i)Notes\s+to.*(Financial\s+Statements|Condensed)`), "NOTES_TO_FINANCIAL_STATEMENTS", "Notes to Financial Statements"},
	{regexp.MustCompile(`(?i)Management.*Discussion.*Analysis`), "MANAGEMENT_DISCUSSION", "Management's Discussion and Analysis"},
	{regexp.MustCompile(`(?i)Part\s+I\.?\s*Financial\s+Information`), "PART_I_FINANCIAL_INFORMATION", "Part I Financial Information"},
	{regexp.MustCompile(`(?i)Part\s+II\.?\s*Other\s+Information`), "PART_II_OTHER_INFORMATION", "Part II Other Information"},
}

var genericPatterns = []pattern{
	{regexp.MustCompile(`(?i)Financial\s+Statements`), "FINANCIAL_STATEMENTS", "Financial Statements"},
	{regexp.MustCompile(`(?i)Notes\s+to.*Financial\s+Statements`), "NOTES_TO_FINANCIAL_STATEMENTS", "Notes to Financial Statements"},
	{regexp.MustCompile(`(?i)Management.*Discussion.*Analysis`), "MANAGEMENT_DISCUSSION", "Management's Discussion and Analysis"},
	{regexp.MustCompile(`(?i)Risk\s+Factors`), "RISK_FACTORS", "Risk Factors"},
}

// additionalPatterns catch statement and subsection headings regardless of
// filing type.
var additionalPatterns = []pattern{
	{regexp.MustCompile(`(?i)Consolidated Balance Sheets?`), "CONSOLIDATED_BALANCE_SHEET", "Consolidated Balance Sheets"},
	{regexp.MustCompile(`(?i)Consolidated Statements? of Operations`), "CONSOLIDATED_INCOME_STATEMENT", "Consolidated Statements of Operations"},
	{regexp.MustCompile(`(?i)Consolidated Statements? of Cash Flows?`), "CONSOLIDATED_CASH_FLOW", "Consolidated Statements of Cash Flows"},
	{regexp.MustCompile(`(?i)Consolidated Statements? of Stockholders['’"]? Equity`), "CONSOLIDATED_EQUITY", "Consolidated Statements of Stockholders' Equity"},
	{regexp.MustCompile(`(?i)Consolidated Statements? of Comprehensive Income`), "CONSOLIDATED_COMPREHENSIVE_INCOME", "Consolidated Statements of Comprehensive Income"},
	{regexp.MustCompile(`(?i)Controls and Procedures`), "CONTROLS_AND_PROCEDURES", "Controls and Procedures"},
	{regexp.MustCompile(`(?i)Critical Accounting (Policies|Estimates)`), "CRITICAL_ACCOUNTING", "Critical Accounting Estimates"},
	{regexp.MustCompile(`(?i)Forward[-\s]Looking Statements?`), "FORWARD_LOOKING", "Forward-Looking Statements"},
	{regexp.MustCompile(`(?i)Liquidity and Capital Resources`), "LIQUIDITY_AND_CAPITAL", "Liquidity and Capital Resources"},
	{regexp.MustCompile(`(?i)Results? of Operations`), "RESULTS_OF_OPERATIONS", "Results of Operations"},
	{regexp.MustCompile(`(?i)Significant Accounting Policies`), "SIGNIFICANT_ACCOUNTING_POLICIES", "Significant Accounting Policies"},
}

// patternsFor returns the heading patterns for a filing type, ITEM patterns
// first so they win over the statement-level ones.
func patternsFor(filingType model.FilingType) []pattern {
	var base []pattern
	switch filingType {
	case model.Filing10K:
		base = tenKPatterns
	case model.Filing10Q:
		base = tenQPatterns
	default:
		base = genericPatterns
	}
	out := make([]pattern, 0, len(base)+len(additionalPatterns))
	out = append(out, base...)
	out = append(out, additionalPatterns...)
	return out
}
