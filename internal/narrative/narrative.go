// Package narrative extracts the ITEM sections of a filing's primary HTML
// document and renders them as markdown. The structured statements live in
// the fact artifacts; this package provides the prose around them.
package narrative

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/sells-group/edgar-llm/internal/model"
)

// Section is one extracted narrative section.
type Section struct {
	ID      string // stable id, e.g. ITEM_1A_RISK_FACTORS
	Title   string // readable title, e.g. Risk Factors
	Heading string // heading text as it appeared in the filing
	Text    string // markdown body
}

const (
	// Heading candidates longer than this are body text, not headings.
	maxHeadingLen = 120
	// Paragraphs shorter than this are page artifacts and navigation crumbs.
	minParagraph = 100
)

// Extract parses the filing HTML, locates the section headings for the filing
// type and returns each section's body as cleaned markdown. When no heading
// matches, the whole document comes back as a single FULL_TEXT section.
func Extract(data []byte, filingType model.FilingType, sourceURL string) ([]Section, error) {
	if len(data) == 0 {
		return nil, eris.New("narrative: empty document")
	}
	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, eris.Wrap(err, "narrative: detect charset")
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "narrative: parse html")
	}

	// Tables carry the statement data already extracted elsewhere, and the
	// inline XBRL header holds machine-readable metadata. Both are noise here.
	doc.Find("script, style, table").Remove()
	doc.Find("ix\\:header, ix\\:hidden").Remove()

	heads := findHeadings(doc, patternsFor(filingType))

	markdown, err := toMarkdown(doc, sourceURL)
	if err != nil {
		return nil, err
	}
	markdown = cleanMarkdown(markdown)

	log := zap.L().With(zap.String("filing_type", string(filingType)))
	if len(heads) == 0 {
		log.Debug("no section headings matched, keeping full text")
		text := filterParagraphs(markdown)
		if text == "" {
			return nil, nil
		}
		return []Section{{ID: "FULL_TEXT", Title: "Full Text", Text: text}}, nil
	}

	sections := sliceSections(markdown, heads)
	log.Debug("narrative sections extracted",
		zap.Int("headings", len(heads)),
		zap.Int("sections", len(sections)))
	return sections, nil
}

// Render joins sections into the plain-text narrative artifact.
func Render(sections []Section) string {
	if len(sections) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "@SECTION: %s (%s)\n\n%s\n\n", s.ID, s.Title, strings.TrimSpace(s.Text))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

type headingMatch struct {
	id, title, heading string
}

// findHeadings walks the heading-shaped elements in document order and
// records the first occurrence of each section. Elements wrapping an internal
// anchor link are table-of-contents entries and are skipped.
func findHeadings(doc *goquery.Document, pats []pattern) []headingMatch {
	var heads []headingMatch
	seen := make(map[string]bool)
	doc.Find("h1, h2, h3, h4, strong, b, p, div").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" || len(text) > maxHeadingLen {
			return
		}
		if sel.Find(`a[href^="#"]`).Length() > 0 {
			return
		}
		for _, p := range pats {
			if !p.re.MatchString(text) {
				continue
			}
			if !seen[p.id] {
				seen[p.id] = true
				heads = append(heads, headingMatch{id: p.id, title: p.title, heading: text})
			}
			break
		}
	})
	return heads
}

func toMarkdown(doc *goquery.Document, sourceURL string) (string, error) {
	var raw string
	var err error
	if body := doc.Find("body"); body.Length() > 0 {
		raw, err = body.Html()
	} else {
		raw, err = doc.Html()
	}
	if err != nil {
		return "", eris.Wrap(err, "narrative: serialize html")
	}
	conv := md.NewConverter(sourceURL, true, nil)
	markdown, err := conv.ConvertString(raw)
	if err != nil || strings.TrimSpace(markdown) == "" {
		// Same fallback the crawler stack uses: strip tags and keep the text.
		return stripTags(raw), nil
	}
	return markdown, nil
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

var (
	pageNumRe    = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	pageOfRe     = regexp.MustCompile(`(?mi)^\s*Page\s+\d+\s+of\s+\d+\s*$`)
	continuedRe  = regexp.MustCompile(`(?i)\(Continued[^)]*\)`)
	hyphenRe     = regexp.MustCompile(`([a-z])-\s+([a-z])`)
	multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// cleanMarkdown removes the page furniture SEC documents are full of:
// standalone page numbers, "Page N of M" footers, "(Continued)" markers and
// words hyphenated across line breaks.
func cleanMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = pageNumRe.ReplaceAllString(s, "")
	s = pageOfRe.ReplaceAllString(s, "")
	s = continuedRe.ReplaceAllString(s, "")
	s = hyphenRe.ReplaceAllString(s, "$1$2")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// sliceSections locates each heading in the markdown and cuts the text
// between consecutive headings. The scan is cursor-forward so a heading can
// only ever bind after the previous one.
func sliceSections(markdown string, heads []headingMatch) []Section {
	lines := strings.Split(markdown, "\n")
	type located struct {
		headingMatch
		line int
	}
	var found []located
	cursor := 0
	for _, h := range heads {
		needle := plainLine(h.heading)
		idx := -1
		for i := cursor; i < len(lines); i++ {
			if strings.Contains(lines[i], "](#") {
				continue // markdown link to an internal anchor
			}
			plain := plainLine(lines[i])
			if plain == "" || len(plain) > len(needle)+40 {
				continue
			}
			if strings.Contains(plain, needle) {
				idx = i
				break
			}
		}
		if idx < 0 {
			zap.L().Debug("section heading not found in markdown", zap.String("section", h.id))
			continue
		}
		found = append(found, located{headingMatch: h, line: idx})
		cursor = idx + 1
	}

	sections := make([]Section, 0, len(found))
	for i, f := range found {
		end := len(lines)
		if i+1 < len(found) {
			end = found[i+1].line
		}
		text := filterParagraphs(strings.Join(lines[f.line+1:end], "\n"))
		if text == "" {
			continue
		}
		sections = append(sections, Section{ID: f.id, Title: f.title, Heading: f.heading, Text: text})
	}
	return sections
}

var mdDecoration = strings.NewReplacer("*", "", "_", "", "\\", "", "#", "", "`", "")

// plainLine strips markdown decoration and collapses whitespace so heading
// text from HTML compares equal to its converted markdown line.
func plainLine(s string) string {
	return strings.Join(strings.Fields(mdDecoration.Replace(s)), " ")
}

// filterParagraphs drops paragraphs below the boilerplate threshold.
func filterParagraphs(text string) string {
	var kept []string
	for _, para := range strings.Split(text, "\n\n") {
		if len(plainLine(para)) < minParagraph {
			continue
		}
		kept = append(kept, strings.TrimSpace(para))
	}
	return strings.Join(kept, "\n\n")
}
