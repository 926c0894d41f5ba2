package check

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/monisenforest/internal/reference"
)

var treeColumns = []string{"tag_no", "indv_no", "spc_japan", "gbh05", "gbh10", "gbh15"}

func newTree(t *testing.T, cfg Config, rows ...[]string) *TreeChecks {
	t.Helper()
	tc, err := NewTreeChecks(newRecord(t, "TM-DB1", treeColumns, rows...), Options{Config: cfg})
	require.NoError(t, err)
	return tc
}

func TestTreeSchemaError(t *testing.T) {
	rec := newRecord(t, "TM-DB1", []string{"indv_no", "spc_japan", "gbh05"}, []string{"1", "ブナ", "20"})
	_, err := NewTreeChecks(rec, Options{Config: DefaultConfig()})

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"tag_no"}, se.Missing)
	assert.Contains(t, err.Error(), "tag_no")

	rec = newRecord(t, "TM-DB1", []string{"tag_no", "indv_no", "spc_japan", "dbh05"}, []string{"1", "1", "ブナ", "20"})
	_, err = NewTreeChecks(rec, Options{Config: DefaultConfig()})
	assert.True(t, IsSchemaError(err))
}

func TestTreeConfigErrorBeforeRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Growth.PerYear = -1
	rec := newRecord(t, "TM-DB1", treeColumns, []string{"1", "1", "ブナ", "10", "12", "14"})
	_, err := NewTreeChecks(rec, Options{Config: cfg})
	assert.True(t, IsConfigError(err))
}

func TestCheckInvalidDateCountsCells(t *testing.T) {
	cols := []string{"tag_no", "indv_no", "spc_japan", "gbh05", "s_date05"}
	rec := newRecord(t, "TM-DB1", cols,
		[]string{"1", "1", "ブナ", "20", "20050631"},
		[]string{"2", "2", "ブナ", "20", "20050615"},
		[]string{"3", "3", "ブナ", "20", ""},
		[]string{"4", "4", "ブナ", "20", "na"},
		[]string{"5", "5", "ブナ", "20", "nd"},
		[]string{"6", "6", "ブナ", "20", "2005/06/15"},
	)
	tc, err := NewTreeChecks(rec, Options{Config: DefaultConfig()})
	require.NoError(t, err)

	got := tc.CheckInvalidDate()
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 2, 5}, []int{got[0].Row, got[1].Row, got[2].Row})
	assert.Equal(t, "1", got[0].RecordID)
	assert.Equal(t, "s_date05", got[0].Column)
}

func TestCheckTagDup(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "20", "21", "22"},
		[]string{"2", "2", "ブナ", "20", "21", "22"},
		[]string{"2", "3", "ブナ", "20", "21", "22"},
		[]string{"2", "4", "ブナ", "20", "21", "22"},
	)
	got := tc.CheckTagDup()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Row)
	assert.Equal(t, 3, got[1].Row)
	assert.Equal(t, RuleTagDup, got[0].Rule)
}

func TestBlankTagIsNotDuplicate(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "20", "21", "22"},
		[]string{"", "2", "ブナ", "20", "", "22"},
		[]string{" ", "3", "ブナ", "20", "21", "22"},
	)
	assert.Empty(t, tc.CheckTagDup())

	got := tc.CheckBlankInDataCols()
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Row)
	assert.Equal(t, 1, got[1].Row)
	assert.Equal(t, 2, got[2].Row)
	assert.Equal(t, "tag_no", got[2].Column)
	assert.Equal(t, RuleBlankInDataCols, got[2].Rule)
}

func TestCheckIndvNullAndSpMismatch(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "20", "21", "22"},
		[]string{"2", "1", "ミズナラ", "20", "21", "22"},
		[]string{"3", "", "ブナ", "20", "21", "22"},
		[]string{"4", "na", "ブナ", "20", "21", "22"},
	)
	assert.Len(t, tc.CheckIndvNull(), 2)

	mm := tc.CheckSpMismatch()
	require.Len(t, mm, 1)
	assert.Equal(t, "1; 2", mm[0].RecordID)
	assert.Equal(t, "ブナ/ミズナラ", mm[0].Target)
}

func TestFindAnomaly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Growth = GrowthConfig{PerYear: 0, Intercept: 30, MinIncrement: -3.1}
	tc := newTree(t, cfg,
		[]string{"1", "1", "ブナ", "10", "12", "95"},
		[]string{"2", "2", "ブナ", "10", "12", "40"},
		[]string{"3", "3", "ブナ", "30", "20", "21"},
		[]string{"4", "4", "ブナ", "cd30", "20", "21"},
	)
	got := tc.FindAnomaly()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, "gbh15", got[0].Column)
	assert.Equal(t, "gbh05=30; gbh10=20", got[1].Target)
	assert.Equal(t, 2, got[1].Row)
	assert.Equal(t, "gbh10", got[1].Column)
}

func TestPeriodsFollowYearsNotColumnOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Growth = GrowthConfig{PerYear: 0, Intercept: 30, MinIncrement: -3.1}
	cols := []string{"tag_no", "indv_no", "spc_japan", "gbh15", "gbh05", "gbh10"}
	rec := newRecord(t, "TM-DB1", cols, []string{"1", "1", "ブナ", "95", "10", "12"})
	tc, err := NewTreeChecks(rec, Options{Config: cfg})
	require.NoError(t, err)

	got := tc.FindAnomaly()
	require.Len(t, got, 1)
	assert.Equal(t, "gbh15", got[0].Column)
}

func TestCheckMissing(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "20", "na", "na"},
		[]string{"2", "2", "ブナ", "20", "d", "na"},
		[]string{"3", "3", "ブナ", "10", "na", "na"},
		[]string{"4", "4", "ブナ", "20", "d25", "na"},
	)
	got := tc.CheckMissing()
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, "gbh10", got[0].Column)
}

func TestCheckValuesAfterD(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "20", "d", "21"},
		[]string{"2", "2", "ブナ", "d20", "d21", "dd"},
		[]string{"3", "3", "ブナ", "d", "dd", "na"},
		[]string{"4", "4", "ブナ", "d", "22", "23"},
	)
	got := tc.CheckValuesAfterD()
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, "gbh15", got[0].Column)
	assert.Equal(t, 3, got[1].Row)
	assert.Equal(t, "gbh10", got[1].Column)
	assert.Equal(t, "gbh15", got[2].Column)
}

func TestCheckValuesRecruits(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "na", "40", "42"},
		[]string{"2", "2", "ブナ", "na", "20", "22"},
		[]string{"3", "3", "ブナ", "40", "42", "44"},
	)
	got := tc.CheckValuesRecruits()
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, "gbh10", got[0].Column)
}

func TestCheckValuesND(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "20", "nd21", "22"},
		[]string{"2", "2", "ブナ", "20", "nd40", "22"},
		[]string{"3", "3", "ブナ", "20", "21", "nd22"},
	)
	got := tc.CheckValuesND()
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, "gbh10", got[0].Column)
}

func TestCheckBlankInvalidPositive(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ブナ", "", "x", "0"},
		[]string{"2", "2", "ブナ", "na", "-3", "d"},
	)
	assert.Len(t, tc.CheckBlankInDataCols(), 1)
	assert.Len(t, tc.CheckInvalidValues(), 1)

	pos := tc.CheckPositive()
	require.Len(t, pos, 2)
	assert.Equal(t, "gbh15", pos[0].Column)
	assert.Equal(t, "gbh10", pos[1].Column)
}

func TestSpeciesRules(t *testing.T) {
	rec := newRecord(t, "TM-DB1", treeColumns,
		[]string{"1", "1", "ブナ", "20", "21", "22"},
		[]string{"2", "2", "ﾌﾞﾅ", "20", "21", "22"},
		[]string{"3", "3", "シラカンバ", "20", "21", "22"},
		[]string{"4", "3", "シラカンバ", "20", "21", "22"},
		[]string{"5", "4", "ミズナラ", "20", "21", "22"},
		[]string{"6", "4", "ミズナラ（広義）", "20", "21", "22"},
		[]string{"7", "5", "ヤマモミジ", "20", "21", "22"},
		[]string{"8", "6", "", "20", "21", "22"},
	)
	tc, err := NewTreeChecks(rec, Options{Config: DefaultConfig(), Dictionary: testDictionary(t)})
	require.NoError(t, err)

	notIn := tc.CheckSpNotInList()
	require.Len(t, notIn, 2)
	assert.Equal(t, "シラカンバ", notIn[0].Target)
	assert.Equal(t, "3; 4", notIn[0].RecordID)
	assert.Equal(t, 7, notIn[1].Row)

	syn := tc.CheckSynonym()
	require.Len(t, syn, 2)
	assert.Equal(t, SeverityError, syn[0].Severity)
	assert.Equal(t, "5; 6", syn[0].RecordID)
	assert.Equal(t, SeverityWarning, syn[1].Severity)
	assert.Equal(t, NoRow, syn[1].Row)

	local := tc.CheckLocalName()
	require.Len(t, local, 1)
	assert.Equal(t, "ヤマモミジ", local[0].Target)
}

func TestCheckMeshAndStemXY(t *testing.T) {
	cols := []string{"tag_no", "indv_no", "spc_japan", "gbh05", "mesh_xcord", "mesh_ycord", "stem_xcord", "stem_ycord"}
	rec := newRecord(t, "TM-DB1", cols,
		[]string{"1", "1", "ブナ", "20", "1", "1", "3.5", "4"},
		[]string{"2", "2", "ブナ", "20", "9", "1", "-1", "4"},
		[]string{"3", "3", "ブナ", "20", "a", "1", "12", "x"},
		[]string{"4", "4", "ブナ", "20", "", "1", "na", "nd"},
		[]string{"5", "5", "ブナ", "20", "nd", "1", "1", "1"},
	)
	ref := reference.New(map[string]reference.Geometry{
		"TM-DB1": {MeshX: []int{0, 1, 2}, MeshY: []int{0, 1, 2}, StemXMax: 10, StemYMax: 10},
	}, nil)
	tc, err := NewTreeChecks(rec, Options{Config: DefaultConfig(), Reference: ref})
	require.NoError(t, err)

	mesh := tc.CheckMeshXY()
	require.Len(t, mesh, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{mesh[0].Row, mesh[1].Row, mesh[2].Row})

	stem := tc.CheckStemXY()
	require.Len(t, stem, 3)
	assert.Equal(t, "stem_xcord", stem[0].Column)
	assert.Equal(t, 2, stem[1].Row)
	assert.Equal(t, "stem_ycord", stem[2].Column)

	// Without geometry the mesh rule has nothing to compare against.
	tc, err = NewTreeChecks(rec, Options{Config: DefaultConfig()})
	require.NoError(t, err)
	assert.Empty(t, tc.CheckMeshXY())
}

func TestTreeCheckAll(t *testing.T) {
	rows := [][]string{
		{"1", "1", "ブナ", "20", "na", "na"},
		{"1", "2", "ブナ", "10", "12", "95"},
		{"3", "3", "ブナ", "20", "nd21", "22"},
	}
	tc := newTree(t, DefaultConfig(), rows...)

	quick := tc.CheckAll(false)
	assert.Equal(t, []RuleID{RuleTagDup, RuleMissing}, rulesOf(quick))

	full := tc.CheckAll(true)
	assert.Equal(t, []RuleID{RuleTagDup, RuleMissing, RuleAnomaly, RuleValuesND}, rulesOf(full))
	assert.Equal(t, full, tc.CheckAll(true), "CheckAll must be idempotent")
}

func TestRunSelection(t *testing.T) {
	tc := newTree(t, DefaultConfig(),
		[]string{"1", "1", "ヤマモミジ", "20", "21", "0"},
	)
	tc.dict = testDictionary(t)

	got := Run(tc, RunOptions{})
	assert.Equal(t, []RuleID{RulePositive}, rulesOf(got))

	got = Run(tc, RunOptions{Rules: map[RuleID]bool{RuleLocalName: true, RulePositive: false}})
	assert.Equal(t, []RuleID{RuleLocalName}, rulesOf(got))

	ids := Selected(tc, RunOptions{Thorough: true})
	assert.Contains(t, ids, RuleAnomaly)
	assert.NotContains(t, ids, RuleLocalName)
}
