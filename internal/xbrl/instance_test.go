package xbrl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-llm/internal/model"
)

const instanceFixture = `<?xml version="1.0" encoding="utf-8"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance"
            xmlns:link="http://www.xbrl.org/2003/linkbase"
            xmlns:xlink="http://www.w3.org/1999/xlink"
            xmlns:xbrldi="http://xbrl.org/2006/xbrldi"
            xmlns:us-gaap="http://fasb.org/us-gaap/2022"
            xmlns:dei="http://xbrl.sec.gov/dei/2022">
<link:schemaRef xlink:type="simple" xlink:href="aapl-20221231.xsd"/>
<link:linkbaseRef xlink:type="simple" xlink:href="aapl-20221231_cal.xml"/>
<xbrli:context id="c-dur">
  <xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000320193</xbrli:identifier></xbrli:entity>
  <xbrli:period><xbrli:startDate>2022-10-01</xbrli:startDate><xbrli:endDate>2022-12-31</xbrli:endDate></xbrli:period>
</xbrli:context>
<xbrli:context id="c-inst">
  <xbrli:entity>
    <xbrli:identifier scheme="http://www.sec.gov/CIK">0000320193</xbrli:identifier>
    <xbrli:segment><xbrldi:explicitMember dimension="us-gaap:StatementClassOfStockAxis">us-gaap:CommonStockMember</xbrldi:explicitMember></xbrli:segment>
  </xbrli:entity>
  <xbrli:period><xbrli:instant>2022-12-31</xbrli:instant></xbrli:period>
</xbrli:context>
<xbrli:unit id="usd"><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unit>
<xbrli:unit id="usd-per-share">
  <xbrli:divide>
    <xbrli:unitNumerator><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unitNumerator>
    <xbrli:unitDenominator><xbrli:measure>shares</xbrli:measure></xbrli:unitDenominator>
  </xbrli:divide>
</xbrli:unit>
<us-gaap:Assets contextRef="c-inst" unitRef="usd" decimals="-6">346747000000</us-gaap:Assets>
<us-gaap:OtherComprehensiveIncomeLossNetOfTax contextRef="c-dur" unitRef="usd" decimals="-6">-1215000000</us-gaap:OtherComprehensiveIncomeLossNetOfTax>
<us-gaap:EarningsPerShareDiluted contextRef="c-dur" unitRef="usd-per-share" decimals="2">1.88</us-gaap:EarningsPerShareDiluted>
<us-gaap:DebtInstrumentInterestRateTerms contextRef="c-dur" unitRef="usd">LIBOR plus 1%</us-gaap:DebtInstrumentInterestRateTerms>
<dei:DocumentType contextRef="c-dur">10-Q</dei:DocumentType>
<us-gaap:SignificantAccountingPoliciesTextBlock contextRef="c-dur"><div>Summary of <b>significant</b> accounting policies.</div></us-gaap:SignificantAccountingPoliciesTextBlock>
</xbrli:xbrl>`

func extractInstanceFixture(t *testing.T) *Document {
	t.Helper()
	doc, err := Extract([]byte(instanceFixture), "https://www.sec.gov/aapl-20221231.xml", ExtractOptions{
		Handlers:  DefaultHandlers(),
		PeriodEnd: "2022-12-31",
	})
	require.NoError(t, err)
	return doc
}

func TestExtractInstanceFacts(t *testing.T) {
	t.Parallel()

	doc := extractInstanceFixture(t)
	assert.Equal(t, KindInstance, doc.Kind)
	require.Len(t, doc.Facts, 6)

	byConcept := make(map[string]Fact)
	for _, f := range doc.Facts {
		byConcept[f.Concept] = f
	}

	assets := byConcept["us-gaap:Assets"]
	assert.Equal(t, FactNumeric, assets.Kind)
	assert.Equal(t, "346747000000", assets.Value)
	assert.Equal(t, "c-inst", assets.ContextRef)
	assert.Equal(t, "usd", assets.UnitRef)
	assert.Equal(t, "-6", assets.Decimals)

	oci := byConcept["us-gaap:OtherComprehensiveIncomeLossNetOfTax"]
	assert.Equal(t, FactNumeric, oci.Kind)
	assert.Equal(t, "-1215000000", oci.Value)

	eps := byConcept["us-gaap:EarningsPerShareDiluted"]
	assert.Equal(t, "1.88", eps.Value)
	assert.Equal(t, "usd-per-share", eps.UnitRef)

	terms := byConcept["us-gaap:DebtInstrumentInterestRateTerms"]
	assert.Equal(t, FactNonNumeric, terms.Kind, "value that refuses numeric parse keeps its text")
	assert.Equal(t, "LIBOR plus 1%", terms.Value)

	docType := byConcept["dei:DocumentType"]
	assert.Equal(t, FactNonNumeric, docType.Kind)
	assert.Equal(t, "10-Q", docType.Value)

	policies := byConcept["us-gaap:SignificantAccountingPoliciesTextBlock"]
	assert.Equal(t, "Summary of significant accounting policies.", policies.Value, "nested markup must flatten to text")

	assert.Empty(t, doc.Warnings)
}

func TestExtractInstanceResources(t *testing.T) {
	t.Parallel()

	doc := extractInstanceFixture(t)

	dur := doc.Contexts["c-dur"]
	assert.Equal(t, "0000320193", dur.Entity)
	assert.Equal(t, "2022-10-01", dur.StartDate)
	assert.Equal(t, "2022-12-31", dur.EndDate)
	assert.False(t, dur.IsInstant())

	inst := doc.Contexts["c-inst"]
	assert.Equal(t, "2022-12-31", inst.Instant)
	assert.True(t, inst.IsInstant())
	require.NotNil(t, inst.Dimensions)
	assert.Equal(t, "us-gaap:CommonStockMember", inst.Dimensions["us-gaap:StatementClassOfStockAxis"])

	usd := doc.Units["usd"]
	assert.Equal(t, "iso4217:USD", usd.Measure)

	perShare := doc.Units["usd-per-share"]
	assert.Equal(t, "iso4217:USD", perShare.Numerator)
	assert.Equal(t, "shares", perShare.Denominator)
	assert.Equal(t, "iso4217:USD/shares", perShare.Label())

	assert.Equal(t, []string{"aapl-20221231.xsd"}, doc.SchemaRefs)
	assert.Equal(t, []string{"aapl-20221231_cal.xml"}, doc.LinkbaseRefs)
	assert.False(t, doc.ContextsSynthetic)
}

func TestExtractInstanceRecoversWellKnownPrefixes(t *testing.T) {
	t.Parallel()

	// Concept elements sit in default namespaces the document never binds to a
	// prefix, so resolution falls back to the conventional names.
	page := `<?xml version="1.0"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance">
<xbrli:context id="c1"><xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000789019</xbrli:identifier></xbrli:entity><xbrli:period><xbrli:instant>2024-06-30</xbrli:instant></xbrli:period></xbrli:context>
<xbrli:unit id="usd"><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unit>
<Assets xmlns="http://fasb.org/us-gaap/2024" contextRef="c1" unitRef="usd" decimals="0">512000</Assets>
<EntityRegistrantName xmlns="http://xbrl.sec.gov/dei/2024" contextRef="c1">MICROSOFT CORPORATION</EntityRegistrantName>
</xbrli:xbrl>`

	doc, err := Extract([]byte(page), "https://www.sec.gov/msft-20240630.xml", ExtractOptions{
		Handlers:  DefaultHandlers(),
		PeriodEnd: "2024-06-30",
	})
	require.NoError(t, err)
	require.Len(t, doc.Facts, 2)

	concepts := make([]string, 0, len(doc.Facts))
	for _, f := range doc.Facts {
		concepts = append(concepts, f.Concept)
	}
	assert.Contains(t, concepts, "us-gaap:Assets")
	assert.Contains(t, concepts, "dei:EntityRegistrantName")
	assert.Equal(t, "MICROSOFT CORPORATION", doc.DEIValue("EntityRegistrantName"))
}

func TestExtractInstanceTruncatedDocument(t *testing.T) {
	t.Parallel()

	page := `<?xml version="1.0"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance" xmlns:us-gaap="http://fasb.org/us-gaap/2022">
<xbrli:context id="c1"><xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000320193</xbrli:identifier></xbrli:entity><xbrli:period><xbrli:instant>2022-12-31</xbrli:instant></xbrli:period></xbrli:context>
<xbrli:unit id="usd"><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unit>
<us-gaap:Assets contextRef="c1" unitRef="usd" decimals="0">1000</us-gaap:Assets>
<us-gaap:Liabilities contextRef="c1`

	doc, err := Extract([]byte(page), "https://www.sec.gov/cut-short.xml", ExtractOptions{
		Handlers:  DefaultHandlers(),
		PeriodEnd: "2022-12-31",
	})
	require.NoError(t, err, "facts parsed before the cut must survive")
	require.Len(t, doc.Facts, 1)
	assert.Equal(t, "us-gaap:Assets", doc.Facts[0].Concept)

	var codes []string
	for _, w := range doc.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "instance_truncated")
}

func TestParseInstanceRejectsNonXBRLRoot(t *testing.T) {
	t.Parallel()

	_, err := parseInstance([]byte(`<?xml version="1.0"?><financials><total>1</total></financials>`), "https://www.sec.gov/raw.xml")
	require.Error(t, err)

	var pe *model.PermanentExtractError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Reason, "root element is not xbrl")

	_, err = parseInstance([]byte("  \n  "), "https://www.sec.gov/empty.xml")
	require.Error(t, err)
	assert.True(t, errors.As(err, &pe))
}

func TestExtractInstanceZeroFacts(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance">
  <xbrli:context id="c-only">
    <xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0000789019</xbrli:identifier></xbrli:entity>
    <xbrli:period><xbrli:instant>2024-06-30</xbrli:instant></xbrli:period>
  </xbrli:context>
  <xbrli:unit id="usd"><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unit>
</xbrli:xbrl>`

	out, err := Extract([]byte(doc), "https://www.sec.gov/empty-facts.xml", ExtractOptions{
		Handlers:  DefaultHandlers(),
		PeriodEnd: "2024-06-30",
	})
	require.NoError(t, err, "a document with resources but no facts still extracts")
	assert.Empty(t, out.Facts)
	require.Contains(t, out.Contexts, "c-only")

	var codes []string
	for _, w := range out.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "zero_facts")
}
