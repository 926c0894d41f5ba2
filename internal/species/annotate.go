package species

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

// ErrNoSpeciesColumn is returned when a record has no species column to
// annotate.
var ErrNoSpeciesColumn = errors.New("record has no spc_japan or spc column")

// AnnotateOptions selects the columns added by Annotate.
type AnnotateOptions struct {
	ScientificName bool
	Classification bool
}

var classificationColumns = []string{"genus", "family", "order", "family_jp", "order_jp"}

// SpeciesColumn returns the species column of a record: spc_japan for tree
// data, spc for seed data.
func SpeciesColumn(rec *record.Record) (string, bool) {
	for _, c := range []string{"spc_japan", "spc"} {
		if rec.HasColumn(c) {
			return c, true
		}
	}
	return "", false
}

// Annotate returns a copy of rec with taxonomic columns appended, and the
// distinct names that were not found in the dictionary (their cells are left
// blank).
func Annotate(rec *record.Record, dict Dictionary, opts AnnotateOptions) (*record.Record, []string, error) {
	col, ok := SpeciesColumn(rec)
	if !ok {
		return nil, nil, ErrNoSpeciesColumn
	}

	var cols []string
	if opts.ScientificName {
		cols = append(cols, "species")
	}
	if opts.Classification {
		cols = append(cols, classificationColumns...)
	}
	if len(cols) == 0 {
		return rec, nil, nil
	}
	for _, c := range cols {
		if rec.HasColumn(c) {
			return nil, nil, fmt.Errorf("annotate: column %q already exists", c)
		}
	}

	values := make([][]string, rec.Len())
	var notFound []string
	seen := make(map[string]bool)
	for i := 0; i < rec.Len(); i++ {
		name := rec.Cell(i, col)
		e, found := dict.Lookup(name)
		if !found {
			values[i] = make([]string, len(cols))
			if !seen[name] {
				seen[name] = true
				notFound = append(notFound, name)
				slog.Warn("species not found in dictionary", "name", name, "plot_id", rec.PlotID())
			}
			continue
		}
		values[i] = entryValues(e, cols)
	}

	out, err := rec.WithColumns(cols, values)
	if err != nil {
		return nil, nil, err
	}
	return out, notFound, nil
}

func entryValues(e Entry, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		switch c {
		case "species":
			out[i] = e.ScientificName
		case "genus":
			out[i] = e.Genus
		case "family":
			out[i] = e.Family
		case "order":
			out[i] = e.Order
		case "family_jp":
			out[i] = e.FamilyJP
		case "order_jp":
			out[i] = e.OrderJP
		}
	}
	return out
}
