package xbrl

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Period is a reporting period recovered from a context id alone.
type Period struct {
	Instant     string
	StartDate   string
	EndDate     string
	FiscalToken string // e.g. FY2024 Q1 for filer-specific fiscal ids
}

// FormatHandler recognizes one context-id naming scheme.
type FormatHandler struct {
	Name  string
	re    *regexp.Regexp
	build func(m []string) Period
}

// Match attempts to decode the context id. The second return is false when
// the id does not belong to this scheme.
func (h FormatHandler) Match(id string) (Period, bool) {
	m := h.re.FindStringSubmatch(id)
	if m == nil {
		return Period{}, false
	}
	return h.build(m), true
}

// DefaultHandlers returns the known context-id schemes in trial order. The
// list is built once at startup and passed to the extractor; ids no handler
// recognizes are retained verbatim.
func DefaultHandlers() []FormatHandler {
	return []FormatHandler{
		{
			Name: "c-duration",
			re:   regexp.MustCompile(`^C_\d+_(\d{8})_(\d{8})$`),
			build: func(m []string) Period {
				return Period{StartDate: date8(m[1]), EndDate: date8(m[2])}
			},
		},
		{
			Name: "c-instant",
			re:   regexp.MustCompile(`^C_\d+_(\d{8})$`),
			build: func(m []string) Period {
				return Period{Instant: date8(m[1])}
			},
		},
		{
			Name: "suffix-duration",
			re:   regexp.MustCompile(`_D(\d{8})-(\d{8})$`),
			build: func(m []string) Period {
				return Period{StartDate: date8(m[1]), EndDate: date8(m[2])}
			},
		},
		{
			Name: "suffix-instant",
			re:   regexp.MustCompile(`_I(\d{8})$`),
			build: func(m []string) Period {
				return Period{Instant: date8(m[1])}
			},
		},
		{
			Name: "hex-duration",
			re:   regexp.MustCompile(`^i[a-z0-9]+_D(\d{8})-(\d{8})$`),
			build: func(m []string) Period {
				return Period{StartDate: date8(m[1]), EndDate: date8(m[2])}
			},
		},
		{
			Name: "hex-instant",
			re:   regexp.MustCompile(`^i[a-z0-9]+_I(\d{8})$`),
			build: func(m []string) Period {
				return Period{Instant: date8(m[1])}
			},
		},
		{
			// Filer-declared fiscal ids (FD2024Q1, FD2024Q3YTD, FD2024) carry a
			// fiscal token but no calendar dates.
			Name: "fiscal-token",
			re:   regexp.MustCompile(`^FD(\d{4})(Q\d)?(YTD)?$`),
			build: func(m []string) Period {
				token := "FY" + m[1]
				if m[2] != "" {
					token += " " + m[2]
				}
				if m[3] != "" {
					token += " YTD"
				}
				return Period{FiscalToken: token}
			},
		},
	}
}

// ResolvePeriod runs the handlers in order against the id. It returns the
// decoded period, the handler name, and whether anything matched.
func ResolvePeriod(handlers []FormatHandler, id string) (Period, string, bool) {
	for _, h := range handlers {
		if p, ok := h.Match(id); ok {
			return p, h.Name, true
		}
	}
	return Period{}, "", false
}

// date8 converts YYYYMMDD to YYYY-MM-DD.
func date8(s string) string {
	if len(s) != 8 {
		return s
	}
	return s[:4] + "-" + s[4:6] + "-" + s[6:]
}

// dimensionSuffix renders explicit dimension members as "(Axis: Member, ...)"
// with namespace prefixes and Axis/Member boilerplate stripped.
func dimensionSuffix(dims map[string]string) string {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", trimDimensionName(k), trimMemberName(dims[k])))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func trimDimensionName(name string) string {
	name = stripPrefix(name)
	name = strings.TrimSuffix(name, "Axis")
	name = strings.TrimSuffix(name, "Dimension")
	name = strings.TrimSuffix(name, "Segment")
	return name
}

func trimMemberName(name string) string {
	name = stripPrefix(name)
	return strings.TrimSuffix(name, "Member")
}

func stripPrefix(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}
