package species

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Required header columns of a species list.
var requiredListColumns = []string{"name_jp", "species"}

// LoadCSV reads a species list with a header row. name_jp and species are
// required; name_jp_std, synonym_group, rank, genus, family, order,
// family_jp and order_jp are optional.
func LoadCSV(r io.Reader) (*Map, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("species list header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredListColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("species list: missing column %q", c)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		v := strings.TrimSpace(row[i])
		if v == "NA" {
			return ""
		}
		return v
	}

	var entries []Entry
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("species list line %d: %w", line, err)
		}
		if get(row, "name_jp") == "" {
			continue
		}
		entries = append(entries, Entry{
			JapaneseName:   get(row, "name_jp"),
			ScientificName: get(row, "species"),
			SynonymGroup:   get(row, "synonym_group"),
			Rank:           get(row, "rank"),
			StandardName:   get(row, "name_jp_std"),
			Genus:          get(row, "genus"),
			Family:         get(row, "family"),
			Order:          get(row, "order"),
			FamilyJP:       get(row, "family_jp"),
			OrderJP:        get(row, "order_jp"),
		})
	}

	return NewMap(entries)
}

// LoadJSON reads a dictionary keyed by Japanese name:
//
//	{"ブナ": {"species": "Fagus crenata", "genus": "Fagus", ...}}
func LoadJSON(r io.Reader) (*Map, error) {
	var raw map[string]Entry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("species dictionary: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(raw))
	for _, name := range names {
		e := raw[name]
		e.JapaneseName = name
		entries = append(entries, e)
	}
	return NewMap(entries)
}

// LoadFile reads a .csv or .json dictionary from disk.
func LoadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("species dictionary %s: unsupported format", path)
	}
}
