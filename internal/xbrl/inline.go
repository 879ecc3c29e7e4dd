package xbrl

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// parseInline tokenizes an inline XBRL HTML document. The tokenizer is
// tolerant by construction; anything that is not an ix fact, a resources
// definition or a linkbase reference is passed over.
func parseInline(data []byte, srcURL string) *Document {
	doc := &Document{
		SourceURL: srcURL,
		Kind:      KindInline,
		Contexts:  make(map[string]Context),
		Units:     make(map[string]Unit),
	}

	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		r = bytes.NewReader(data)
	}

	p := &inlineParser{doc: doc}
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				doc.warn("tokenizer_stopped", z.Err().Error())
			}
			p.flushOpenFacts()
			return doc
		case html.StartTagToken:
			name, attrs := readTag(z)
			p.startTag(name, attrs, false)
		case html.SelfClosingTagToken:
			name, attrs := readTag(z)
			p.startTag(name, attrs, true)
		case html.EndTagToken:
			name, _ := z.TagName()
			p.endTag(string(name))
		case html.TextToken:
			p.text(string(z.Text()))
		}
	}
}

func readTag(z *html.Tokenizer) (string, map[string]string) {
	name, hasAttr := z.TagName()
	var attrs map[string]string
	if hasAttr {
		attrs = make(map[string]string)
		for {
			k, v, more := z.TagAttr()
			attrs[string(k)] = string(v)
			if !more {
				break
			}
		}
	}
	return string(name), attrs
}

type factCapture struct {
	fact Fact
	text strings.Builder
}

type inlineParser struct {
	doc *Document

	openFacts      []*factCapture
	hiddenDepth    int
	resourcesDepth int

	curContext   *Context
	curUnit      *Unit
	curDimension string
	inNumerator  bool
	inDenom      bool
	textTarget   string
	textBuf      strings.Builder
}

func (p *inlineParser) startTag(name string, attrs map[string]string, selfClosing bool) {
	prefixed := strings.Contains(name, ":")
	local := localName(name)

	if prefixed {
		switch local {
		case "hidden":
			if !selfClosing {
				p.hiddenDepth++
			}
			return
		case "resources":
			if !selfClosing {
				p.resourcesDepth++
			}
			return
		case "nonfraction", "nonnumeric":
			p.openFact(local, attrs, selfClosing)
			return
		case "schemaref":
			if href := attrs["xlink:href"]; href != "" {
				p.doc.SchemaRefs = append(p.doc.SchemaRefs, href)
			}
			return
		case "linkbaseref":
			if href := attrs["xlink:href"]; href != "" {
				p.doc.LinkbaseRefs = append(p.doc.LinkbaseRefs, href)
			}
			return
		case "context":
			p.curContext = &Context{ID: attrs["id"]}
			if selfClosing {
				p.closeContext()
			}
			return
		case "unit":
			p.curUnit = &Unit{ID: attrs["id"]}
			if selfClosing {
				p.closeUnit()
			}
			return
		}
	}

	switch {
	case p.curContext != nil:
		switch local {
		case "identifier", "instant", "startdate", "enddate":
			p.beginText(local)
		case "explicitmember":
			p.curDimension = attrs["dimension"]
			p.beginText("member")
		}
	case p.curUnit != nil:
		switch local {
		case "unitnumerator":
			p.inNumerator = true
		case "unitdenominator":
			p.inDenom = true
		case "measure":
			p.beginText("measure")
		}
	}
}

func (p *inlineParser) endTag(name string) {
	prefixed := strings.Contains(name, ":")
	local := localName(name)

	if prefixed {
		switch local {
		case "hidden":
			if p.hiddenDepth > 0 {
				p.hiddenDepth--
			}
			return
		case "resources":
			if p.resourcesDepth > 0 {
				p.resourcesDepth--
			}
			return
		case "nonfraction", "nonnumeric":
			p.closeFact()
			return
		case "context":
			p.closeContext()
			return
		case "unit":
			p.closeUnit()
			return
		}
	}

	switch local {
	case "identifier", "instant", "startdate", "enddate", "explicitmember", "measure":
		p.endText(local)
	case "unitnumerator":
		p.inNumerator = false
	case "unitdenominator":
		p.inDenom = false
	}
}

func (p *inlineParser) text(s string) {
	if p.textTarget != "" {
		p.textBuf.WriteString(s)
	}
	for _, fc := range p.openFacts {
		fc.text.WriteString(s)
	}
}

func (p *inlineParser) beginText(target string) {
	p.textTarget = target
	p.textBuf.Reset()
}

func (p *inlineParser) endText(local string) {
	if p.textTarget == "" {
		return
	}
	value := strings.TrimSpace(p.textBuf.String())
	target := p.textTarget
	p.textTarget = ""
	p.textBuf.Reset()

	switch {
	case p.curContext != nil:
		c := p.curContext
		switch target {
		case "identifier":
			c.Entity = value
		case "instant":
			c.Instant = value
		case "startdate":
			c.StartDate = value
		case "enddate":
			c.EndDate = value
		case "member":
			if p.curDimension != "" {
				if c.Dimensions == nil {
					c.Dimensions = make(map[string]string)
				}
				c.Dimensions[p.curDimension] = value
				p.curDimension = ""
			}
		}
	case p.curUnit != nil && target == "measure":
		switch {
		case p.inNumerator:
			p.curUnit.Numerator = value
		case p.inDenom:
			p.curUnit.Denominator = value
		default:
			p.curUnit.Measure = value
		}
	}
}

func (p *inlineParser) closeContext() {
	if p.curContext == nil {
		return
	}
	c := *p.curContext
	p.curContext = nil
	if c.ID == "" {
		p.doc.warn("context_missing_id", "dropped a context definition without an id")
		return
	}
	p.doc.Contexts[c.ID] = c
}

func (p *inlineParser) closeUnit() {
	if p.curUnit == nil {
		return
	}
	u := *p.curUnit
	p.curUnit = nil
	if u.ID == "" {
		p.doc.warn("unit_missing_id", "dropped a unit definition without an id")
		return
	}
	p.doc.Units[u.ID] = u
}

func (p *inlineParser) openFact(local string, attrs map[string]string, selfClosing bool) {
	concept := attrs["name"]
	if concept == "" {
		p.doc.warn("fact_missing_name", "skipped an ix fact without a name attribute")
		return
	}

	fc := &factCapture{fact: Fact{
		Concept:    concept,
		ContextRef: attrs["contextref"],
		UnitRef:    attrs["unitref"],
		Decimals:   attrs["decimals"],
		Sign:       attrs["sign"],
		Format:     attrs["format"],
		Hidden:     p.hiddenDepth > 0,
	}}
	if local == "nonfraction" {
		fc.fact.Kind = FactNumeric
	}
	if s := attrs["scale"]; s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			fc.fact.Scale = n
		} else {
			p.doc.warn("bad_scale", concept+": scale "+s)
		}
	}

	if selfClosing {
		p.finishFact(fc)
		return
	}
	p.openFacts = append(p.openFacts, fc)
}

func (p *inlineParser) closeFact() {
	if len(p.openFacts) == 0 {
		return
	}
	fc := p.openFacts[len(p.openFacts)-1]
	p.openFacts = p.openFacts[:len(p.openFacts)-1]
	p.finishFact(fc)
}

// flushOpenFacts finalizes facts whose closing tags never arrived.
func (p *inlineParser) flushOpenFacts() {
	for len(p.openFacts) > 0 {
		p.closeFact()
	}
}

func (p *inlineParser) finishFact(fc *factCapture) {
	raw := collapseWhitespace(fc.text.String())
	fc.fact.RawValue = raw
	fc.fact.Value = normalizeFactValue(fc.fact, raw, p.doc)
	p.doc.Facts = append(p.doc.Facts, fc.fact)
}

func localName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// logInlineStats is used by Extract for debug visibility.
func logInlineStats(doc *Document) {
	zap.L().Debug("inline extraction",
		zap.String("url", doc.SourceURL),
		zap.Int("facts", len(doc.Facts)),
		zap.Int("contexts", len(doc.Contexts)),
		zap.Int("units", len(doc.Units)),
		zap.Int("hidden_facts", doc.HiddenFactCount()),
		zap.Int("linkbase_refs", len(doc.LinkbaseRefs)),
	)
}
