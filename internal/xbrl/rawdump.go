package xbrl

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// RawFact is one extracted fact as serialized in the raw dump.
type RawFact struct {
	Name       string `json:"name"`
	ContextRef string `json:"contextRef"`
	UnitRef    string `json:"unitRef,omitempty"`
	Value      string `json:"value"`
	Decimals   string `json:"decimals,omitempty"`
	Scale      int    `json:"scale,omitempty"`
}

// RawDump is the verification sidecar written next to the artifacts: the full
// fact list plus the context and unit dictionaries.
type RawDump struct {
	Source   string             `json:"source,omitempty"`
	Facts    []RawFact          `json:"facts"`
	Contexts map[string]Context `json:"contexts"`
	Units    map[string]string  `json:"units"`
}

// BuildRawDump flattens an extracted document into its dump form. Facts are
// ordered by (name, contextRef, unitRef, value) so the dump is byte-stable.
func BuildRawDump(doc *Document) *RawDump {
	dump := &RawDump{
		Source:   doc.SourceURL,
		Facts:    make([]RawFact, 0, len(doc.Facts)),
		Contexts: doc.Contexts,
		Units:    make(map[string]string, len(doc.Units)),
	}
	for _, f := range doc.Facts {
		dump.Facts = append(dump.Facts, RawFact{
			Name:       f.Concept,
			ContextRef: f.ContextRef,
			UnitRef:    f.UnitRef,
			Value:      f.Value,
			Decimals:   f.Decimals,
			Scale:      f.Scale,
		})
	}
	sort.Slice(dump.Facts, func(i, j int) bool {
		a, b := dump.Facts[i], dump.Facts[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.ContextRef != b.ContextRef {
			return a.ContextRef < b.ContextRef
		}
		if a.UnitRef != b.UnitRef {
			return a.UnitRef < b.UnitRef
		}
		return a.Value < b.Value
	})
	for id, u := range doc.Units {
		dump.Units[id] = u.Label()
	}
	return dump
}

// Marshal renders the dump as indented JSON.
func (d *RawDump) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "xbrl: marshal raw dump")
	}
	return data, nil
}

// ParseRawDump reads a dump previously written by Marshal.
func ParseRawDump(data []byte) (*RawDump, error) {
	var d RawDump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, eris.Wrap(err, "xbrl: parse raw dump")
	}
	return &d, nil
}
