package kinds

import (
	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/core"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

func init() {
	registerLitter()
}

func registerLitter() {
	core.Register(core.KindDefinition{
		Info: core.KindInfo{
			Kind:  record.KindLitter,
			Label: "Litterfall",
			Group: "trap",
		},
		Columns: withTrapColumns(
			core.ColumnSpec{Pattern: pattern(`^w_|^wdry_`), Example: "wdry_leaf", Type: core.ColumnMeasurement, Required: true, Label: "Dry weight by organ (g)"},
			core.ColumnSpec{Pattern: pattern(`^wair_`), Example: "wair_leaf", Type: core.ColumnMeasurement, Label: "Air-dry weight by organ (g)"},
			core.ColumnSpec{Name: "note", Type: core.ColumnText, Label: "Note"},
		),
		New: func(rec *record.Record, opts check.Options) (check.CheckSet, error) {
			set, err := check.NewLitterChecks(rec, opts)
			if err != nil {
				return nil, err
			}
			return set, nil
		},
	})
}
