package kinds

import (
	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/core"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

func init() {
	registerSeed()
}

func registerSeed() {
	core.Register(core.KindDefinition{
		Info: core.KindInfo{
			Kind:  record.KindSeed,
			Label: "Seed trap",
			Group: "trap",
		},
		Columns: withTrapColumns(
			core.ColumnSpec{Name: "spc", Type: core.ColumnText, Required: true, Label: "Species (Japanese)"},
			core.ColumnSpec{Name: "status", Type: core.ColumnText, Label: "Maturity status"},
			core.ColumnSpec{Name: "form", Type: core.ColumnText, Label: "Organ form"},
			core.ColumnSpec{Pattern: pattern(`^number|^wdry`), Example: "number", Type: core.ColumnMeasurement, Required: true, Label: "Count or dry weight"},
			core.ColumnSpec{Name: "note", Type: core.ColumnText, Label: "Note"},
		),
		New: func(rec *record.Record, opts check.Options) (check.CheckSet, error) {
			set, err := check.NewSeedChecks(rec, opts)
			if err != nil {
				return nil, err
			}
			return set, nil
		},
	})
}
