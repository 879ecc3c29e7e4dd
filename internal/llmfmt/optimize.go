package llmfmt

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Optimize applies the five size passes to a draft artifact in order: context
// consolidation, text-block deduplication, statement normalization, tag
// shortening, whitespace reduction. The result is the published artifact
// form. Optimize is idempotent: running it on its own output changes nothing.
func Optimize(content string) string {
	content = consolidateContexts(content)
	content = dedupeTextBlocks(content)
	content = normalizeStatements(content)
	content = shortenTags(content)
	content = reduceWhitespace(content)
	return content
}

var contextDefRe = regexp.MustCompile(`^@CONTEXT_DEF: (.+?) \| @LABEL: (.*)$`)

// consolidateContexts assigns compact codes c-1..c-n to the context ids
// declared in the dictionary section, sorted ascending by original id, and
// rewrites every reference in the document. The dictionary is replaced by a
// @DD_CONTEXTS section that maps each code back to its original id and label.
func consolidateContexts(content string) string {
	if strings.Contains(content, "@DD_CONTEXTS") {
		return content
	}
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		if line == "@DATA_DICTIONARY: CONTEXTS" {
			start = i
			break
		}
	}
	if start < 0 {
		return content
	}
	type def struct{ id, label string }
	var defs []def
	end := start + 1
	for end < len(lines) {
		m := contextDefRe.FindStringSubmatch(lines[end])
		if m == nil {
			break
		}
		defs = append(defs, def{id: m[1], label: m[2]})
		end++
	}
	if len(defs) == 0 {
		return content
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].id < defs[j].id })
	codes := make(map[string]string, len(defs))
	for i, d := range defs {
		codes[d.id] = fmt.Sprintf("c-%d", i+1)
	}

	// The dictionary becomes a placeholder so the global id rewrite cannot
	// touch the @CODE column, which must keep the original ids.
	const placeholder = "\x00dd-contexts\x00"
	lines = splice(lines, start, end, placeholder)
	doc := strings.Join(lines, "\n")

	ids := make([]string, 0, len(codes))
	for id := range codes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) > len(ids[j])
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		doc = strings.ReplaceAll(doc, id, codes[id])
	}

	var dd strings.Builder
	dd.WriteString("@DD_CONTEXTS")
	for i, d := range defs {
		fmt.Fprintf(&dd, "\nc-%d | @CODE: %s | @LABEL: %s", i+1, d.id, d.label)
	}
	return strings.Replace(doc, placeholder, dd.String(), 1)
}

// dedupeTextBlocks hashes every narrative block body. When at least one body
// repeats, all blocks move into a @TEXT_BLOCKS section keyed tb-N in
// encounter order and each occurrence is replaced by a @TEXT_REF line. Bodies
// are whitespace-normalized before hashing so a block that differs only in
// spacing from an already-published one still deduplicates.
func dedupeTextBlocks(content string) string {
	lines := strings.Split(content, "\n")
	type block struct {
		start, end int
		title      string
		body       string
		hash       string
	}
	var blocks []block
	for i := 0; i < len(lines); i++ {
		title, ok := cutAny(lines[i], "@NARRATIVE_TEXT: ", "@NT: ")
		if !ok {
			continue
		}
		end := blockEnd(lines, i+1)
		body := normalizeBlockBody(strings.Join(lines[i+1:end], "\n"))
		sum := md5.Sum([]byte(body))
		blocks = append(blocks, block{start: i, end: end, title: title, body: body, hash: hex.EncodeToString(sum[:])})
		i = end - 1
	}
	if len(blocks) == 0 {
		return content
	}

	type entry struct {
		n       int
		title   string
		display string
	}
	unique := make(map[string]entry)
	var order []string
	for _, blk := range blocks {
		if _, seen := unique[blk.hash]; seen {
			continue
		}
		unique[blk.hash] = entry{n: len(unique) + 1, title: blk.title, display: blk.body}
		order = append(order, blk.hash)
	}
	if len(unique) == len(blocks) {
		return content
	}

	section := []string{"@TEXT_BLOCKS", ""}
	for _, hash := range order {
		e := unique[hash]
		display := strings.Split(e.display, "\n")
		section = append(section, fmt.Sprintf("tb-%d | @TITLE: %s", e.n, e.title))
		section = append(section, "      @TEXT: "+display[0])
		section = append(section, display[1:]...)
		section = append(section, "")
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		blk := blocks[i]
		ref := fmt.Sprintf("@TEXT_REF: %s | tb-%d", blk.title, unique[blk.hash].n)
		lines = splice(lines, blk.start, blk.end, ref)
	}

	for _, anchor := range []string{"@UNITS", "@DD_CONTEXTS", "@DOCUMENT_METADATA"} {
		if out, ok := insertAfterSection(lines, anchor, section); ok {
			return strings.Join(out, "\n")
		}
	}
	return strings.Join(append(section, lines...), "\n")
}

// normalizeStatements flattens the wide statement tables into
// Statement|Concept|Value|Context|Context_Label rows under a single
// @NORMALIZED_FINANCIAL_STATEMENTS section, dropping empty and dash-only
// cells. Rows keep the table's order: concepts top to bottom, contexts left
// to right.
func normalizeStatements(content string) string {
	lines := strings.Split(content, "\n")
	type stmtSection struct {
		start, end int
		name       string
		rows       []string
	}
	var sections []stmtSection
	for i := 0; i < len(lines); i++ {
		name, ok := cutAny(lines[i], "@FINANCIAL_STATEMENT: ", "@FS: ")
		if !ok {
			continue
		}
		end := blockEnd(lines, i+1)
		sections = append(sections, stmtSection{
			start: i,
			end:   end,
			name:  name,
			rows:  flattenStatement(name, lines[i+1:end]),
		})
		i = end - 1
	}
	if len(sections) == 0 {
		return content
	}

	normalized := []string{
		"@NORMALIZED_FINANCIAL_STATEMENTS",
		"",
		"@NORMALIZED_FORMAT: Statement|Concept|Value|Context|Context_Label",
		"",
	}
	for _, s := range sections {
		if len(s.rows) == 0 {
			continue
		}
		normalized = append(normalized, "@STATEMENT_TYPE: "+s.name)
		normalized = append(normalized, s.rows...)
		normalized = append(normalized, "")
	}

	first := sections[0].start
	for i := len(sections) - 1; i >= 0; i-- {
		lines = splice(lines, sections[i].start, sections[i].end)
	}
	lines = splice(lines, first, first, normalized...)
	return strings.Join(lines, "\n")
}

// flattenStatement parses one statement table body into normalized rows.
func flattenStatement(name string, body []string) []string {
	labels := make(map[string]string)
	var contexts []string
	var rows []string
	for _, line := range body {
		if text, ok := cutAny(line, "@CONTEXT_LABELS: ", "@CL: "); ok {
			for _, part := range strings.Split(text, " | ") {
				part = strings.TrimSpace(part)
				open := strings.Index(part, " (")
				if open < 0 || !strings.HasSuffix(part, ")") {
					continue
				}
				labels[part[:open]] = part[open+2 : len(part)-1]
			}
			continue
		}
		if !strings.Contains(line, "|") {
			continue
		}
		cells := strings.Split(line, "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if cells[0] == "Line Item" {
			contexts = cells[1:]
			continue
		}
		if contexts == nil || dashOnly(cells[0]) {
			continue
		}
		concept := cells[0]
		for i := 1; i < len(cells) && i-1 < len(contexts); i++ {
			v := cells[i]
			if v == "" || dashOnly(v) {
				continue
			}
			ctx := contexts[i-1]
			rows = append(rows, strings.Join([]string{name, concept, v, ctx, labels[ctx]}, "|"))
		}
	}
	return rows
}

func dashOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '-' {
			return false
		}
	}
	return true
}

// tagMappings shortens the verbose draft tags. Order is fixed so the pass is
// deterministic; none of the short forms appear on the left side, which keeps
// the pass idempotent.
var tagMappings = []struct{ old, new string }{
	{"@FINANCIAL_STATEMENT:", "@FS:"},
	{"@STATEMENT_TYPE:", "@ST:"},
	{"@NARRATIVE_TEXT:", "@NT:"},
	{"@CONTEXT_LABELS:", "@CL:"},
	{"@INDIVIDUAL_FACTS_SECTION", "@FACTS_SECTION"},
	{"@DATA_DICTIONARY: CONTEXTS", "@DD_CONTEXTS"},
	{"@SECTION:", "@SEC:"},
}

func shortenTags(content string) string {
	for _, m := range tagMappings {
		content = strings.ReplaceAll(content, m.old, m.new)
	}
	return content
}

var (
	multiBlankRe    = regexp.MustCompile(`\n{3,}`)
	trailingSpaceRe = regexp.MustCompile(`(?m)[ \t]+$`)
	pipeSpaceRe     = regexp.MustCompile(` *\| *`)
)

func reduceWhitespace(content string) string {
	content = multiBlankRe.ReplaceAllString(content, "\n\n")
	content = trailingSpaceRe.ReplaceAllString(content, "")
	content = pipeSpaceRe.ReplaceAllString(content, "|")
	return strings.TrimRight(content, "\n") + "\n"
}

// normalizeBlockBody applies the same whitespace rules the final pass does,
// so hashing is stable across repeated optimization.
func normalizeBlockBody(s string) string {
	s = multiBlankRe.ReplaceAllString(s, "\n\n")
	s = trailingSpaceRe.ReplaceAllString(s, "")
	s = pipeSpaceRe.ReplaceAllString(s, "|")
	return strings.TrimSpace(s)
}

// blockEnd returns the exclusive end of a tagged block whose body starts at
// from: the index of the blank line preceding the next tag line, or the end
// of input with trailing blank lines excluded.
func blockEnd(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if lines[j] == "" && j+1 < len(lines) && strings.HasPrefix(lines[j+1], "@") {
			return j
		}
	}
	end := len(lines)
	for end > from && lines[end-1] == "" {
		end--
	}
	return end
}

// splice replaces lines[start:end] with repl.
func splice(lines []string, start, end int, repl ...string) []string {
	out := make([]string, 0, len(lines)-(end-start)+len(repl))
	out = append(out, lines[:start]...)
	out = append(out, repl...)
	out = append(out, lines[end:]...)
	return out
}

// insertAfterSection inserts the given lines right after the section opened
// by the header line, which runs to the first blank line.
func insertAfterSection(lines []string, header string, section []string) ([]string, bool) {
	for i, line := range lines {
		if line != header {
			continue
		}
		j := i + 1
		for j < len(lines) && lines[j] != "" {
			j++
		}
		if j < len(lines) {
			j++
		}
		return splice(lines, j, j, section...), true
	}
	return lines, false
}

func cutAny(line string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p); ok {
			return rest, true
		}
	}
	return "", false
}
