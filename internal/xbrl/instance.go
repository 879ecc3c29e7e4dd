package xbrl

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/sells-group/edgar-llm/internal/model"
)

// wellKnownPrefixes maps namespace URI tokens to the conventional prefix when
// the document declares none we can recover.
var wellKnownPrefixes = []struct{ token, prefix string }{
	{"fasb.org/us-gaap", "us-gaap"},
	{"xbrl.sec.gov/dei", "dei"},
	{"fasb.org/srt", "srt"},
	{"xbrl.sec.gov/country", "country"},
	{"xbrl.sec.gov/currency", "currency"},
	{"xbrl.org/2003/instance", "xbrli"},
	{"xbrl.org/2006/xbrldi", "xbrldi"},
}

// parseInstance walks a raw XBRL instance. Every element carrying a
// contextRef attribute that is not part of the instance scaffolding becomes a
// fact.
func parseInstance(data []byte, srcURL string) (*Document, error) {
	doc := &Document{
		SourceURL: srcURL,
		Kind:      KindInstance,
		Contexts:  make(map[string]Context),
		Units:     make(map[string]Unit),
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	prefixes := make(map[string]string) // namespace URI -> prefix
	rootSeen := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !rootSeen {
				return nil, &model.PermanentExtractError{URL: srcURL, Reason: "instance parse: " + err.Error()}
			}
			doc.warn("instance_truncated", err.Error())
			break
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		recordNamespaces(se, prefixes)

		if !rootSeen {
			if strings.ToLower(se.Name.Local) != "xbrl" {
				return nil, &model.PermanentExtractError{URL: srcURL, Reason: "root element is not xbrl"}
			}
			rootSeen = true
			continue
		}

		switch strings.ToLower(se.Name.Local) {
		case "context":
			c := parseInstanceContext(dec, se)
			if c.ID != "" {
				doc.Contexts[c.ID] = c
			}
		case "unit":
			u := parseInstanceUnit(dec, se)
			if u.ID != "" {
				doc.Units[u.ID] = u
			}
		case "schemaref":
			if href := attrValue(se, "href"); href != "" {
				doc.SchemaRefs = append(doc.SchemaRefs, href)
			}
			_ = dec.Skip()
		case "linkbaseref":
			if href := attrValue(se, "href"); href != "" {
				doc.LinkbaseRefs = append(doc.LinkbaseRefs, href)
			}
			_ = dec.Skip()
		default:
			ref := attrValue(se, "contextRef")
			if ref == "" {
				continue
			}
			f := Fact{
				Concept:    qname(se.Name, prefixes),
				ContextRef: ref,
				UnitRef:    attrValue(se, "unitRef"),
				Decimals:   attrValue(se, "decimals"),
			}
			raw := collapseWhitespace(elementText(dec))
			f.RawValue = raw
			if f.UnitRef != "" {
				if v, ok := normalizeNumeric(raw, "", 0); ok {
					f.Kind = FactNumeric
					f.Value = v
				} else {
					f.Value = raw
				}
			} else {
				f.Value = raw
			}
			doc.Facts = append(doc.Facts, f)
		}
	}

	if !rootSeen {
		return nil, &model.PermanentExtractError{URL: srcURL, Reason: "no xbrl root element"}
	}
	return doc, nil
}

func recordNamespaces(se xml.StartElement, prefixes map[string]string) {
	for _, a := range se.Attr {
		if a.Name.Space == "xmlns" {
			prefixes[a.Value] = a.Name.Local
		}
	}
}

func qname(name xml.Name, prefixes map[string]string) string {
	if name.Space == "" {
		return name.Local
	}
	if p, ok := prefixes[name.Space]; ok && p != "" {
		return p + ":" + name.Local
	}
	for _, wk := range wellKnownPrefixes {
		if strings.Contains(name.Space, wk.token) {
			return wk.prefix + ":" + name.Local
		}
	}
	return name.Local
}

func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if strings.EqualFold(a.Name.Local, local) {
			return a.Value
		}
	}
	return ""
}

// elementText concatenates character data until the element closes, tolerating
// nested markup inside text-block facts.
func elementText(dec *xml.Decoder) string {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return b.String()
}

func parseInstanceContext(dec *xml.Decoder, start xml.StartElement) Context {
	c := Context{ID: attrValue(start, "id")}
	var target, dimension string
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch strings.ToLower(t.Name.Local) {
			case "identifier", "instant", "startdate", "enddate":
				target = strings.ToLower(t.Name.Local)
			case "explicitmember":
				target = "member"
				dimension = attrValue(t, "dimension")
			}
		case xml.EndElement:
			depth--
			target = ""
		case xml.CharData:
			value := strings.TrimSpace(string(t))
			if value == "" || target == "" {
				continue
			}
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
				if dimension != "" {
					if c.Dimensions == nil {
						c.Dimensions = make(map[string]string)
					}
					c.Dimensions[dimension] = value
				}
			}
		}
	}
	return c
}

func parseInstanceUnit(dec *xml.Decoder, start xml.StartElement) Unit {
	u := Unit{ID: attrValue(start, "id")}
	var inNumerator, inDenom, inMeasure bool
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch strings.ToLower(t.Name.Local) {
			case "unitnumerator":
				inNumerator = true
			case "unitdenominator":
				inDenom = true
			case "measure":
				inMeasure = true
			}
		case xml.EndElement:
			depth--
			switch strings.ToLower(t.Name.Local) {
			case "unitnumerator":
				inNumerator = false
			case "unitdenominator":
				inDenom = false
			case "measure":
				inMeasure = false
			}
		case xml.CharData:
			value := strings.TrimSpace(string(t))
			if value == "" || !inMeasure {
				continue
			}
			switch {
			case inNumerator:
				u.Numerator = value
			case inDenom:
				u.Denominator = value
			default:
				u.Measure = value
			}
		}
	}
	return u
}
