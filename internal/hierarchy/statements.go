package hierarchy

import (
	"sort"

	"go.uber.org/zap"
)

// StatementMap is the resolved statement structure for one filing: role →
// statement classification, concept → (statement, depth) assignments and the
// top-level concept set per statement.
type StatementMap struct {
	roles       map[string]StatementType
	assignments map[string]Concept
	topLevel    map[StatementType][]string
	arcs        []Arc
	fromArcs    bool
}

// Build assembles a StatementMap from parsed linkbases. Arcs are deduplicated
// on ArcKey across all inputs (first occurrence wins, so callers pass
// presentation linkbases first). With no usable arcs the map degrades to
// seed-and-pattern classification.
func Build(linkbases []*Linkbase) *StatementMap {
	m := &StatementMap{
		roles:       make(map[string]StatementType),
		assignments: make(map[string]Concept),
		topLevel:    make(map[StatementType][]string),
	}

	labels := make(map[string]string)
	seen := make(map[ArcKey]bool)
	for _, lb := range linkbases {
		if lb == nil {
			continue
		}
		for _, role := range lb.Roles {
			if _, ok := m.roles[role]; !ok {
				m.roles[role] = ClassifyRole(role)
			}
		}
		for _, arc := range lb.Arcs {
			key := arc.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			m.arcs = append(m.arcs, arc)
		}
		for concept, label := range lb.Labels {
			if _, ok := labels[concept]; !ok {
				labels[concept] = label
			}
		}
	}

	m.fromArcs = len(m.arcs) > 0
	if m.fromArcs {
		m.assignFromArcs(labels)
	} else {
		m.assignFromSeeds(labels)
	}

	zap.L().Debug("hierarchy: statement map built",
		zap.Int("roles", len(m.roles)),
		zap.Int("arcs", len(m.arcs)),
		zap.Int("concepts", len(m.assignments)),
		zap.Bool("from_linkbases", m.fromArcs),
	)
	return m
}

// assignFromArcs derives concept depths per statement with a breadth-first
// work list. Roots are parents that never appear as children; seeds fill in
// when a statement has arcs but no derivable root.
func (m *StatementMap) assignFromArcs(labels map[string]string) {
	byStatement := make(map[StatementType][]Arc)
	for _, arc := range m.arcs {
		st := m.roles[arc.Role]
		if st == "" {
			st = StatementOther
		}
		byStatement[st] = append(byStatement[st], arc)
	}

	for _, st := range StatementOrder {
		arcs := byStatement[st]
		if len(arcs) == 0 {
			continue
		}

		children := make(map[string][]string)
		isChild := make(map[string]bool)
		nodes := make(map[string]bool)
		for _, arc := range arcs {
			children[arc.From] = append(children[arc.From], arc.To)
			isChild[arc.To] = true
			nodes[arc.From] = true
			nodes[arc.To] = true
		}

		var roots []string
		for node := range nodes {
			if !isChild[node] {
				roots = append(roots, node)
			}
		}
		if len(roots) == 0 {
			for _, seed := range seedTopLevel[st] {
				if nodes[seed] {
					roots = append(roots, seed)
				}
			}
		}
		sort.Strings(roots)
		m.topLevel[st] = roots

		// Work-list traversal: a node keeps the smallest depth any parent
		// path gives it.
		type item struct {
			concept string
			depth   int
		}
		queue := make([]item, 0, len(roots))
		for _, root := range roots {
			queue = append(queue, item{root, 0})
		}
		best := make(map[string]int, len(nodes))
		for len(queue) > 0 {
			it := queue[0]
			queue = queue[1:]
			if d, ok := best[it.concept]; ok && d <= it.depth {
				continue
			}
			best[it.concept] = it.depth
			for _, child := range children[it.concept] {
				queue = append(queue, item{child, it.depth + 1})
			}
		}

		for concept, depth := range best {
			if existing, ok := m.assignments[concept]; ok && existing.Depth <= depth {
				continue
			}
			m.assignments[concept] = Concept{
				QName:     concept,
				Label:     labels[concept],
				Statement: st,
				Depth:     depth,
			}
		}
	}
}

// assignFromSeeds is the linkbase-free fallback: seeds become the top levels
// and nothing else is assigned until Level classifies it on demand.
func (m *StatementMap) assignFromSeeds(labels map[string]string) {
	for _, st := range StatementOrder {
		seeds := seedTopLevel[st]
		if len(seeds) == 0 {
			continue
		}
		m.topLevel[st] = append([]string(nil), seeds...)
		for _, seed := range seeds {
			m.assignments[seed] = Concept{
				QName:     seed,
				Label:     labels[seed],
				Statement: st,
				Depth:     0,
			}
		}
	}
}

// Level places a concept: the linkbase assignment when one exists, a seed
// match, or name-pattern classification at depth 2. Depth is reported as
// 0, 1 or 2, with anything deeper collapsed to 2.
func (m *StatementMap) Level(concept string) (StatementType, int) {
	if c, ok := m.assignments[concept]; ok {
		depth := c.Depth
		if depth > 2 {
			depth = 2
		}
		return c.Statement, depth
	}
	return ClassifyConcept(concept), 2
}

// Statement classifies an extended link role URI, honoring the roles already
// observed in the linkbases.
func (m *StatementMap) Statement(role string) StatementType {
	if st, ok := m.roles[role]; ok {
		return st
	}
	return ClassifyRole(role)
}

// TopLevel returns the root concepts of a statement.
func (m *StatementMap) TopLevel(st StatementType) []string {
	return m.topLevel[st]
}

// Concepts returns every assigned concept of a statement ordered by depth,
// then QName. The order is what keeps artifact emission byte-stable.
func (m *StatementMap) Concepts(st StatementType) []Concept {
	var out []Concept
	for _, c := range m.assignments {
		if c.Statement == st {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].QName < out[j].QName
	})
	return out
}

// FromLinkbases reports whether the map was built from real arcs rather than
// the seed fallback.
func (m *StatementMap) FromLinkbases() bool {
	return m.fromArcs
}

// Label returns the human label a label linkbase supplied for the concept.
func (m *StatementMap) Label(concept string) string {
	return m.assignments[concept].Label
}

// Arcs exposes the deduplicated arc set.
func (m *StatementMap) Arcs() []Arc {
	return m.arcs
}
