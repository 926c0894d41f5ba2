package kinds

import (
	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/core"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

func init() {
	registerTree()
}

func registerTree() {
	core.Register(core.KindDefinition{
		Info: core.KindInfo{
			Kind:  record.KindTree,
			Label: "Tree census",
			Group: "census",
		},
		Columns: []core.ColumnSpec{
			{Name: "mesh_xcord", Type: core.ColumnCoordinate, Label: "Mesh x"},
			{Name: "mesh_ycord", Type: core.ColumnCoordinate, Label: "Mesh y"},
			{Name: "stem_xcord", Type: core.ColumnCoordinate, Label: "Stem x (m)"},
			{Name: "stem_ycord", Type: core.ColumnCoordinate, Label: "Stem y (m)"},
			{Name: "tag_no", Type: core.ColumnText, Required: true, Label: "Tag number"},
			{Name: "indv_no", Type: core.ColumnText, Required: true, Label: "Individual number"},
			{Name: "spc_japan", Type: core.ColumnText, Required: true, Label: "Species (Japanese)"},
			{Pattern: pattern(`^gbh[0-9]{2}$`), Example: "gbh05", Type: core.ColumnMeasurement, Required: true, Label: "Girth at breast height (cm)"},
			{Pattern: pattern(`^note[0-9]{2}$`), Example: "note05", Type: core.ColumnText, Label: "Note"},
			{Pattern: pattern(`^s_date[0-9]{2}$`), Example: "s_date05", Type: core.ColumnDate, Label: "Census date"},
			{Pattern: pattern(`^dbh[0-9]{2}$`), Example: "dbh05", Type: core.ColumnMeasurement, Label: "Diameter at breast height (cm)"},
		},
		New: func(rec *record.Record, opts check.Options) (check.CheckSet, error) {
			set, err := check.NewTreeChecks(rec, opts)
			if err != nil {
				return nil, err
			}
			return set, nil
		},
	})
}
