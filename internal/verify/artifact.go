// Package verify compares a published artifact against its raw-dump sidecar:
// every extracted fact has to survive into the artifact with its value intact.
package verify

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/xbrl"
)

// Artifact is the fact surface parsed back out of a published artifact.
type Artifact struct {
	// Facts holds @CONCEPT block facts, keyed with context references
	// translated back to their original ids.
	Facts map[xbrl.FactKey]string
	// Rows holds normalized statement rows. Rows carry no unit reference, so
	// their keys use an empty UnitRef.
	Rows map[xbrl.FactKey]string
	// ContextCodes maps compact codes (c-3) to original context ids.
	ContextCodes map[string]string
}

var (
	contextCodeRe  = regexp.MustCompile(`(?m)^(c-\d+)\s*\|\s*@CODE:\s*([^|]+?)\s*\|\s*@LABEL:`)
	conceptStartRe = regexp.MustCompile(`^@CONCEPT:\s*(.*)`)
	attrRe         = regexp.MustCompile(`^@(\w+):\s*(.*)`)
	normalizedRow  = regexp.MustCompile(`(?m)^([^@|\n][^|\n]*)\|([A-Za-z][\w.-]*:[\w.-]+)\|(-?[0-9][0-9,.]*)\|([^|\n]*)\|([^|\n]*)$`)
)

// ParseArtifact extracts the context dictionary, @CONCEPT blocks and
// normalized statement rows from artifact text.
func ParseArtifact(content string) *Artifact {
	art := &Artifact{
		Facts:        map[xbrl.FactKey]string{},
		Rows:         map[xbrl.FactKey]string{},
		ContextCodes: map[string]string{},
	}

	for _, m := range contextCodeRe.FindAllStringSubmatch(content, -1) {
		art.ContextCodes[m[1]] = strings.TrimSpace(m[2])
	}

	parseConceptBlocks(content, art)

	for _, m := range normalizedRow.FindAllStringSubmatch(content, -1) {
		key := xbrl.FactKey{Concept: m[2], ContextRef: art.originalContext(strings.TrimSpace(m[4]))}
		if _, ok := art.Rows[key]; !ok {
			art.Rows[key] = strings.TrimSpace(m[3])
		}
	}

	zap.L().Debug("artifact parsed",
		zap.Int("concept_facts", len(art.Facts)),
		zap.Int("normalized_rows", len(art.Rows)),
		zap.Int("context_codes", len(art.ContextCodes)))
	return art
}

// originalContext resolves a compact code back to the extracted context id.
// Unknown references pass through unchanged.
func (a *Artifact) originalContext(ref string) string {
	if orig, ok := a.ContextCodes[ref]; ok {
		return orig
	}
	return ref
}

func parseConceptBlocks(content string, art *Artifact) {
	var (
		cur     xbrl.FactKey
		curVal  string
		open    bool
		inAttrs bool
	)
	flush := func() {
		if open && cur.Concept != "" {
			art.Facts[cur] = curVal
		}
		open = false
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if m := conceptStartRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = xbrl.FactKey{Concept: strings.TrimSpace(m[1])}
			curVal = ""
			open = true
			inAttrs = true
			continue
		}
		if inAttrs && strings.HasPrefix(line, "@") {
			if m := attrRe.FindStringSubmatch(line); m != nil {
				val := strings.TrimSpace(m[2])
				switch strings.ToUpper(m[1]) {
				case "VALUE":
					curVal = val
				case "CONTEXT_REF":
					cur.ContextRef = art.originalContext(val)
				case "UNIT_REF":
					cur.UnitRef = val
				}
			}
			continue
		}
		inAttrs = false
	}
	flush()
}

// conceptNames collects the unique concept names across blocks and rows.
func (a *Artifact) conceptNames() map[string]bool {
	names := make(map[string]bool, len(a.Facts))
	for k := range a.Facts {
		names[k.Concept] = true
	}
	for k := range a.Rows {
		names[k.Concept] = true
	}
	return names
}

// valuesByName pools every value seen for a concept name, for the second
// matching pass.
func (a *Artifact) valuesByName() map[string][]string {
	pool := make(map[string][]string, len(a.Facts))
	for k, v := range a.Facts {
		pool[k.Concept] = append(pool[k.Concept], v)
	}
	for k, v := range a.Rows {
		pool[k.Concept] = append(pool[k.Concept], v)
	}
	return pool
}
