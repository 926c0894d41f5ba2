package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

const treeCSV = "\ufeff" + `#,PLOT ID,,TM-DB1,,
#,DATA TITLE,,Tree census,,
,,,,,
tag_no,indv_no,spc_japan,gbh05,s_date05
1,1,ブナ,30.5,20050601
2,2,ミズナラ,na,20050601
,,,,,
`

func TestRead_CSV(t *testing.T) {
	rec, err := Read("data_XX-DB9_tree.csv", strings.NewReader(treeCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"tag_no", "indv_no", "spc_japan", "gbh05", "s_date05"}, rec.Columns())
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, "ブナ", rec.Cell(0, "spc_japan"))
	assert.Equal(t, "na", rec.Cell(1, "gbh05"))

	// Metadata wins over the file name.
	assert.Equal(t, "TM-DB1", rec.PlotID())
	assert.Equal(t, "Tree census", rec.Metadata()["DATA TITLE"])
	assert.Len(t, rec.Comments(), 2)
	assert.Equal(t, record.KindTree, rec.Kind())
}

func TestRead_PlotIDFromName(t *testing.T) {
	input := "trap_id,s_date1,s_date2,w_leaf,wdry_leaf\nA1,20190501,20190601,1,0.5\n"

	rec, err := Read("KY-EC1_litter.csv", strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, "KY-EC1", rec.PlotID())
	assert.Equal(t, record.KindLitter, rec.Kind())

	rec, err = Read("KY-EC1_litter.csv", strings.NewReader(input), Options{PlotID: "OS-AT1"})
	require.NoError(t, err)
	assert.Equal(t, "OS-AT1", rec.PlotID())
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		input   string
		opts    Options
		wantErr error
	}{
		{name: "unsupported extension", file: "plot.ods", input: "a,b\n1,2\n", wantErr: ErrUnsupportedFormat},
		{name: "only comments", file: "plot.csv", input: "# PLOT ID,,TM-DB1\n\n", wantErr: ErrEmpty},
		{name: "header only", file: "plot.csv", input: "tag_no,gbh05\n", wantErr: ErrEmpty},
		{name: "too large", file: "plot.csv", input: strings.Repeat("a,b\n", 100), opts: Options{MaxBytes: 16}, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.file, strings.NewReader(tt.input), tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestRead_DuplicateHeader(t *testing.T) {
	_, err := Read("plot.csv", strings.NewReader("tag_no,tag_no\n1,2\n"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestRead_NoComments(t *testing.T) {
	input := "#id,value\n1,2\n"

	rec, err := Read("plot.csv", strings.NewReader(input), Options{NoComments: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"#id", "value"}, rec.Columns())
	assert.Equal(t, 1, rec.Len())
}

func TestRead_Clean(t *testing.T) {
	input := "tag_no,spc_japan,gbh05\n１,ﾌﾞﾅ,12.300000190734863\n"

	rec, err := Read("plot.csv", strings.NewReader(input), Options{Clean: true})
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Cell(0, "tag_no"))
	assert.Equal(t, "ブナ", rec.Cell(0, "spc_japan"))
	assert.Equal(t, "12.3", rec.Cell(0, "gbh05"))
}

func workbook(t *testing.T, sheets map[string][][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestRead_XLSX(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"Notes": {{"not", "data"}},
		"Data": {
			{"#", "PLOT ID", "", "AS-DB1"},
			{"trap_id", "s_date1", "s_date2", "w_leaf", "wdry_leaf"},
			{"A1", "20190501", "20190601", "1.5", "0.7"},
		},
	})

	rec, err := Read("litter.xlsx", buf, Options{})
	require.NoError(t, err)

	assert.Equal(t, "AS-DB1", rec.PlotID())
	assert.Equal(t, record.KindLitter, rec.Kind())
	assert.Equal(t, "A1", rec.Cell(0, "trap_id"))
	assert.Equal(t, "0.7", rec.Cell(0, "wdry_leaf"))
}

func TestRead_XLSXMissingSheet(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"Data": {{"a"}, {"1"}},
	})

	_, err := Read("litter.xlsx", buf, Options{Sheet: "Seeds"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Seeds" not found`)
}

func TestStripEdges(t *testing.T) {
	grid := [][]string{
		{"", "", "", ""},
		{"", "a", "", "b"},
		{"", "", "", ""},
		{"", "c", "", "d"},
		{"", "", "", ""},
	}

	got := stripEdges(grid)

	// The interior blank row and column stay.
	assert.Equal(t, [][]string{
		{"a", "", "b"},
		{"", "", ""},
		{"c", "", "d"},
	}, got)

	assert.Nil(t, stripEdges([][]string{{"", ""}, {"", ""}}))
}

func TestMetadata(t *testing.T) {
	comments := [][]string{
		{"#", "DATA CREATED", "", "2020-03-31"},
		{"", "PLOT ID", "", "TM-DB1"},
		{"TRAP SIZE"},
	}

	meta := Metadata(comments)

	assert.Equal(t, "2020-03-31", meta["DATA CREATED"])
	assert.Equal(t, "TM-DB1", meta["PLOT ID"])
	assert.Equal(t, "", meta["TRAP SIZE"])
	_, ok := meta["SITE NAME"]
	assert.False(t, ok)
}

func TestPlotIDFromName(t *testing.T) {
	tests := map[string]string{
		"TM-DB1_tree_2019.csv":     "TM-DB1",
		"/data/in/KY-EC2-seed.xlsx": "KY-EC2",
		"OS-AT1.csv":               "OS-AT1",
		"TM-XX1.csv":               "",
		"tree.csv":                 "",
	}
	for name, want := range tests {
		assert.Equal(t, want, PlotIDFromName(name), name)
	}
}
