// Package kinds registers the tree, litter and seed data definitions with
// the core registry. Import this package to make the kinds available.
package kinds

import (
	"regexp"

	"github.com/JonMunkholm/monisenforest/internal/core"
)

// Shared column specs of the two trap surveys.
var trapColumns = []core.ColumnSpec{
	{Name: "trap_id", Type: core.ColumnText, Required: true, Label: "Trap id"},
	{Name: "s_date1", Type: core.ColumnDate, Required: true, Label: "Installation date"},
	{Name: "s_date2", Type: core.ColumnDate, Required: true, Label: "Collection date"},
}

func pattern(expr string) *regexp.Regexp { return regexp.MustCompile(expr) }

func withTrapColumns(extra ...core.ColumnSpec) []core.ColumnSpec {
	out := append([]core.ColumnSpec(nil), trapColumns...)
	return append(out, extra...)
}
