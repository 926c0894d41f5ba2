// Package species maps the Japanese species names written on field sheets to
// scientific names and higher taxa.
//
// The dictionary is built once and only read afterwards, so a single instance
// can be shared by concurrent checks.
package species

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Entry is one dictionary row.
type Entry struct {
	JapaneseName   string `json:"name_jp"`
	ScientificName string `json:"species"`
	SynonymGroup   string `json:"synonym_group,omitempty"`
	Rank           string `json:"rank,omitempty"`

	// StandardName is set when JapaneseName is a non-standard local name; it
	// holds the standard Japanese name of the same taxon.
	StandardName string `json:"name_jp_std,omitempty"`

	Genus    string `json:"genus,omitempty"`
	Family   string `json:"family,omitempty"`
	Order    string `json:"order,omitempty"`
	FamilyJP string `json:"family_jp,omitempty"`
	OrderJP  string `json:"order_jp,omitempty"`
}

// IsLocalName reports whether the entry is a non-standard local name.
func (e Entry) IsLocalName() bool { return e.StandardName != "" }

// Dictionary answers species-name queries.
type Dictionary interface {
	Lookup(japaneseName string) (Entry, bool)
}

// Map is the in-memory Dictionary.
type Map struct {
	entries map[string]Entry
}

// NewMap indexes entries by normalized Japanese name. Missing synonym groups
// default to the scientific name and missing ranks are inferred from it.
func NewMap(entries []Entry) (*Map, error) {
	m := &Map{entries: make(map[string]Entry, len(entries))}
	for i, e := range entries {
		key := Normalize(e.JapaneseName)
		if key == "" {
			return nil, fmt.Errorf("species: entry %d has no Japanese name", i+1)
		}
		if _, dup := m.entries[key]; dup {
			return nil, fmt.Errorf("species: duplicate name %q", e.JapaneseName)
		}
		if e.SynonymGroup == "" {
			e.SynonymGroup = e.ScientificName
		}
		if e.Rank == "" {
			e.Rank = InferRank(e.ScientificName)
		}
		m.entries[key] = e
	}
	return m, nil
}

// Lookup finds a name regardless of width, case and surrounding spaces.
func (m *Map) Lookup(name string) (Entry, bool) {
	e, ok := m.entries[Normalize(name)]
	return e, ok
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Normalize folds a species name for comparison: NFKC (full-width Latin and
// half-width kana), case folding and whitespace collapsing.
func Normalize(name string) string {
	s := norm.NFKC.String(name)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// InferRank derives the taxonomic rank from a scientific name.
func InferRank(scientific string) string {
	fields := strings.Fields(scientific)
	switch {
	case len(fields) == 0:
		return ""
	case containsAny(fields, "var."):
		return "variety"
	case containsAny(fields, "subsp.", "ssp."):
		return "subspecies"
	case containsAny(fields, "f.", "fo."):
		return "form"
	case len(fields) == 1, containsAny(fields, "sp.", "spp."):
		return "genus"
	default:
		return "species"
	}
}

func containsAny(fields []string, words ...string) bool {
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
