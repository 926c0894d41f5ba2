package check

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/species"
)

func newRecord(t *testing.T, plot string, columns []string, rows ...[]string) *record.Record {
	t.Helper()
	rec, err := record.New(columns, rows, record.Options{PlotID: plot})
	require.NoError(t, err)
	return rec
}

func testDictionary(t *testing.T) *species.Map {
	t.Helper()
	m, err := species.NewMap([]species.Entry{
		{JapaneseName: "ブナ", ScientificName: "Fagus crenata"},
		{JapaneseName: "ミズナラ", ScientificName: "Quercus crispula"},
		{JapaneseName: "ミズナラ（広義）", ScientificName: "Quercus mongolica var. crispula", SynonymGroup: "Quercus crispula"},
		{JapaneseName: "オオモミジ", ScientificName: "Acer amoenum"},
		{JapaneseName: "ヤマモミジ", ScientificName: "Acer amoenum var. matsumurae", StandardName: "オオモミジ"},
	})
	require.NoError(t, err)
	return m
}

func rulesOf(fs []Finding) []RuleID {
	out := make([]RuleID, len(fs))
	for i, f := range fs {
		out[i] = f.Rule
	}
	return out
}

func only(fs []Finding, id RuleID) []Finding {
	var out []Finding
	for _, f := range fs {
		if f.Rule == id {
			out = append(out, f)
		}
	}
	return out
}
