package record

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]string
		wantErr bool
	}{
		{
			name:    "valid",
			columns: []string{"tag_no", "gbh05"},
			rows:    [][]string{{"1", "20.1"}, {"2", "na"}},
		},
		{
			name:    "no columns",
			wantErr: true,
		},
		{
			name:    "duplicate column",
			columns: []string{"tag_no", "tag_no"},
			wantErr: true,
		},
		{
			name:    "empty column name",
			columns: []string{"tag_no", ""},
			wantErr: true,
		},
		{
			name:    "short row",
			columns: []string{"tag_no", "gbh05"},
			rows:    [][]string{{"1"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns, tt.rows, Options{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordIsImmutable(t *testing.T) {
	rows := [][]string{{"1", "20.1"}}
	rec, err := New([]string{"tag_no", "gbh05"}, rows, Options{PlotID: "TM-DB1"})
	require.NoError(t, err)

	rows[0][1] = "99"
	assert.Equal(t, "20.1", rec.Cell(0, "gbh05"))

	row := rec.Row(0)
	row[0] = "x"
	assert.Equal(t, "1", rec.Cell(0, "tag_no"))

	cols := rec.Columns()
	cols[0] = "y"
	assert.True(t, rec.HasColumn("tag_no"))
}

func TestRecordAccessors(t *testing.T) {
	rec, err := New(
		[]string{"tag_no", "gbh05", "gbh10", "note"},
		[][]string{{"1", " 20.5 ", "d", ""}},
		Options{PlotID: "TM-DB1", Metadata: map[string]string{"PLOT ID": "TM-DB1"}},
	)
	require.NoError(t, err)

	v, ok := rec.Float(0, "gbh05")
	assert.True(t, ok)
	assert.InDelta(t, 20.5, v, 1e-9)

	_, ok = rec.Float(0, "gbh10")
	assert.False(t, ok)

	assert.Equal(t, "", rec.Cell(0, "unknown"))
	assert.Equal(t, []string{"gbh05", "gbh10"}, rec.Select(regexp.MustCompile(`^gbh`)))
	assert.Equal(t, "TM-DB1", rec.Metadata()["PLOT ID"])
}

func TestWithColumns(t *testing.T) {
	rec, err := New([]string{"a"}, [][]string{{"1"}, {"2"}}, Options{PlotID: "X"})
	require.NoError(t, err)

	out, err := rec.WithColumns([]string{"b"}, [][]string{{"x"}, {"y"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Columns())
	assert.Equal(t, "y", out.Cell(1, "b"))
	assert.Equal(t, "X", out.PlotID())
	assert.False(t, rec.HasColumn("b"))

	_, err = rec.WithColumns([]string{"b"}, [][]string{{"x"}})
	assert.Error(t, err)
}

func TestGuessKind(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    Kind
	}{
		{"tree", []string{"mesh_xcord", "tag_no", "indv_no", "spc_japan", "gbh05", "s_date05"}, KindTree},
		{"litter", []string{"trap_id", "s_date1", "s_date2", "w_leaf", "wdry_leaf"}, KindLitter},
		{"seed", []string{"trap_id", "s_date1", "s_date2", "spc", "status", "form", "number", "wdry"}, KindSeed},
		{"other", []string{"a", "b"}, KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessKind(tt.columns))
		})
	}
}

func TestPeriods(t *testing.T) {
	periods, err := Periods([]string{"tag_no", "gbh10", "gbh98", "gbh05", "gbh_note"}, "gbh")
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, "gbh98", periods[0].Column)
	assert.Equal(t, 1998, periods[0].Year)
	assert.Equal(t, "gbh05", periods[1].Column)
	assert.Equal(t, "gbh10", periods[2].Column)
	assert.Equal(t, 5, YearsBetween(periods[1], periods[2]))
}

func TestPeriodsErrors(t *testing.T) {
	_, err := Periods([]string{"tag_no"}, "gbh")
	assert.True(t, errors.Is(err, ErrNoPeriods))

	_, err = Periods([]string{"gbh05", "gbh_05", "s_date05"}, "gbh")
	assert.NoError(t, err)
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing("na"))
	assert.True(t, IsMissing("NA"))
	assert.False(t, IsMissing(""))
	assert.False(t, IsMissing("na<5"))
	assert.True(t, IsBlank("  "))
}
