package hierarchy

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Linkbase is the resolved content of one linkbase document: arcs with
// locator labels already replaced by concept QNames, plus any human labels a
// label link supplied.
type Linkbase struct {
	Arcs   []Arc
	Labels map[string]string // concept QName → preferred label text
	Roles  []string          // extended link role URIs in document order
}

const standardLabelRole = "http://www.xbrl.org/2003/role/label"

// extendedLink accumulates one extended link while the parser walks it.
type extendedLink struct {
	role      string
	kind      ArcKind
	isLabel   bool
	locs      map[string]string // xlink:label → concept QName
	resources map[string]labelResource
	arcs      []rawArc
}

type labelResource struct {
	role string
	text string
}

type rawArc struct {
	from    string
	to      string
	arcrole string
	order   float64
	weight  float64
}

// ParseLinkbase parses a presentation, calculation, definition or label
// linkbase. Unknown extended link kinds are skipped; locator labels that no
// loc declares drop their arcs with a debug log rather than failing the
// document.
func ParseLinkbase(data []byte) (*Linkbase, error) {
	lb := &Linkbase{Labels: make(map[string]string)}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	var cur *extendedLink
	rootSeen := false
	dropped := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !rootSeen {
				return nil, eris.Wrap(err, "hierarchy: parse linkbase")
			}
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			local := el.Name.Local
			switch {
			case strings.EqualFold(local, "linkbase"):
				rootSeen = true

			case strings.EqualFold(local, "presentationLink"),
				strings.EqualFold(local, "calculationLink"),
				strings.EqualFold(local, "definitionLink"),
				strings.EqualFold(local, "labelLink"):
				cur = &extendedLink{
					role:      attr(el, "role"),
					kind:      linkKind(local),
					isLabel:   strings.EqualFold(local, "labelLink"),
					locs:      make(map[string]string),
					resources: make(map[string]labelResource),
				}

			case strings.EqualFold(local, "loc"):
				if cur != nil {
					if label := attr(el, "label"); label != "" {
						cur.locs[label] = conceptFromHref(attr(el, "href"))
					}
				}

			case strings.EqualFold(local, "presentationArc"),
				strings.EqualFold(local, "calculationArc"),
				strings.EqualFold(local, "definitionArc"),
				strings.EqualFold(local, "labelArc"):
				if cur != nil {
					cur.arcs = append(cur.arcs, rawArc{
						from:    attr(el, "from"),
						to:      attr(el, "to"),
						arcrole: attr(el, "arcrole"),
						order:   attrFloat(el, "order"),
						weight:  attrFloat(el, "weight"),
					})
				}

			case strings.EqualFold(local, "label"):
				if cur != nil && cur.isLabel {
					resLabel := attr(el, "label")
					resRole := attr(el, "role")
					var res struct {
						Text string `xml:",chardata"`
					}
					if err := dec.DecodeElement(&res, &el); err == nil && resLabel != "" {
						cur.resources[resLabel] = labelResource{role: resRole, text: strings.TrimSpace(res.Text)}
					}
				}
			}

		case xml.EndElement:
			if cur == nil {
				continue
			}
			local := el.Name.Local
			if strings.EqualFold(local, "presentationLink") ||
				strings.EqualFold(local, "calculationLink") ||
				strings.EqualFold(local, "definitionLink") ||
				strings.EqualFold(local, "labelLink") {
				dropped += lb.resolve(cur)
				cur = nil
			}
		}
	}

	if !rootSeen {
		return nil, eris.New("hierarchy: not a linkbase document")
	}
	if dropped > 0 {
		zap.L().Debug("hierarchy: dropped arcs with unresolved locators", zap.Int("count", dropped))
	}
	return lb, nil
}

// resolve turns one finished extended link into arcs or labels. Returns the
// number of arcs dropped for unresolved endpoints.
func (lb *Linkbase) resolve(link *extendedLink) int {
	if link.role != "" {
		lb.Roles = append(lb.Roles, link.role)
	}

	dropped := 0
	for _, ra := range link.arcs {
		from := link.locs[ra.from]

		if link.isLabel {
			res, ok := link.resources[ra.to]
			if from == "" || !ok || res.text == "" {
				dropped++
				continue
			}
			// Standard labels win; anything else only fills a gap.
			if _, seen := lb.Labels[from]; !seen || res.role == standardLabelRole {
				lb.Labels[from] = res.text
			}
			continue
		}

		to := link.locs[ra.to]
		if from == "" || to == "" {
			dropped++
			continue
		}
		if from == to {
			continue
		}
		lb.Arcs = append(lb.Arcs, Arc{
			From:    from,
			To:      to,
			Role:    link.role,
			Arcrole: ra.arcrole,
			Kind:    link.kind,
			Order:   ra.order,
			Weight:  ra.weight,
		})
	}
	return dropped
}

// conceptFromHref turns a locator href like
// "aapl-20220924.xsd#us-gaap_Assets" into the QName "us-gaap:Assets".
func conceptFromHref(href string) string {
	if href == "" {
		return ""
	}
	frag := href
	if i := strings.LastIndex(href, "#"); i >= 0 {
		frag = href[i+1:]
	}
	if frag == "" {
		return ""
	}
	if i := strings.Index(frag, "_"); i > 0 {
		return frag[:i] + ":" + frag[i+1:]
	}
	return frag
}

func linkKind(local string) ArcKind {
	switch {
	case strings.EqualFold(local, "calculationLink"):
		return ArcCalculation
	case strings.EqualFold(local, "definitionLink"):
		return ArcDefinition
	default:
		return ArcPresentation
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if strings.EqualFold(a.Name.Local, local) {
			return a.Value
		}
	}
	return ""
}

func attrFloat(el xml.StartElement, local string) float64 {
	raw := attr(el, local)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}
