package check

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/reference"
)

var gbhColumnRe = regexp.MustCompile(`^gbh[0-9]{2}$`)

// TreeChecks is the check set for tree census data.
type TreeChecks struct {
	*Common

	ref   *reference.Data
	index *TreeIndex
}

// NewTreeChecks validates the configuration and the schema of rec and
// builds the per-stem index.
func NewTreeChecks(rec *record.Record, opts Options) (*TreeChecks, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if err := requireColumns(rec, record.KindTree,
		[]string{"tag_no", "indv_no", "spc_japan"},
		[]*regexp.Regexp{gbhColumnRe},
	); err != nil {
		return nil, err
	}
	periods, err := record.Periods(rec.Columns(), "gbh")
	if err != nil {
		return nil, &SchemaError{Kind: record.KindTree, Reason: "cannot derive census rounds", Err: err}
	}

	cols := make([]string, len(periods))
	for i, p := range periods {
		cols[i] = p.Column
	}
	return &TreeChecks{
		Common: newCommon(rec, record.KindTree, opts, cols),
		ref:    opts.Reference,
		index:  BuildTreeIndex(rec, periods),
	}, nil
}

func (t *TreeChecks) Kind() record.Kind { return record.KindTree }

func (t *TreeChecks) Rules() []Rule {
	return []Rule{
		{ID: RuleInvalidDate, Run: t.CheckInvalidDate},
		{ID: RuleSpNotInList, Run: t.CheckSpNotInList},
		{ID: RuleSynonym, Run: t.CheckSynonym},
		{ID: RuleLocalName, OptIn: true, Run: t.CheckLocalName},
		{ID: RuleTagDup, Run: t.CheckTagDup},
		{ID: RuleIndvNull, Run: t.CheckIndvNull},
		{ID: RuleSpMismatch, Run: t.CheckSpMismatch},
		{ID: RuleMeshXY, Run: t.CheckMeshXY},
		{ID: RuleStemXY, Run: t.CheckStemXY},
		{ID: RuleBlankInDataCols, Run: t.CheckBlankInDataCols},
		{ID: RuleInvalidValues, Run: t.CheckInvalidValues},
		{ID: RulePositive, Run: t.CheckPositive},
		{ID: RuleMissing, Run: t.CheckMissing},
		{ID: RuleValuesAfterD, Run: t.CheckValuesAfterD},
		{ID: RuleAnomaly, Thorough: true, Run: t.FindAnomaly},
		{ID: RuleValuesRecruits, Run: t.CheckValuesRecruits},
		{ID: RuleValuesND, Thorough: true, Run: t.CheckValuesND},
	}
}

func (t *TreeChecks) CheckAll(thorough bool) []Finding {
	return Run(t, RunOptions{Thorough: thorough, Rules: t.cfg.Rules})
}

// CheckSynonym flags individuals recorded under two names of one taxon,
// then reports dataset-wide collisions as warnings.
func (t *TreeChecks) CheckSynonym() []Finding {
	if t.dict == nil {
		return nil
	}
	var out []Finding
	for _, indv := range t.index.indvs {
		rows := t.index.byIndv[indv]
		for _, names := range t.synonymCollisions(rows) {
			f := t.finding(rows[0], t.speciesColumn, strings.Join(names, "/"), RuleSynonym, SeverityError,
				fmt.Sprintf("individual %s is recorded under synonyms: %s", indv, strings.Join(names, ", ")))
			f.RecordID = t.recordIDs(rows)
			out = append(out, f)
		}
	}
	return append(out, t.datasetSynonyms(SeverityWarning)...)
}

// CheckTagDup flags every row beyond the first that reuses a tag. Blank
// tags are left to CheckBlankInDataCols.
func (t *TreeChecks) CheckTagDup() []Finding {
	var out []Finding
	for _, st := range t.index.Stems {
		if st.Tag == "" {
			continue
		}
		rows := t.index.byTag[st.Tag]
		if rows[0] == st.Row {
			continue
		}
		out = append(out, t.finding(st.Row, "tag_no", "tag_no", RuleTagDup, SeverityError,
			fmt.Sprintf("duplicated tag_no %s (first on line %d)", st.Tag, rows[0]+1)))
	}
	return out
}

// CheckBlankInDataCols adds rows without a tag to the blank measurement
// cells.
func (t *TreeChecks) CheckBlankInDataCols() []Finding {
	out := t.Common.CheckBlankInDataCols()
	for _, st := range t.index.Stems {
		if st.Tag == "" {
			out = append(out, t.finding(st.Row, "tag_no", "tag_no", RuleBlankInDataCols, SeverityError,
				"tag_no is blank"))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// CheckIndvNull flags rows without an individual id.
func (t *TreeChecks) CheckIndvNull() []Finding {
	var out []Finding
	for _, st := range t.index.Stems {
		if st.Indv == "" || record.IsMissing(st.Indv) {
			out = append(out, t.finding(st.Row, "indv_no", "indv_no", RuleIndvNull, SeverityError,
				"indv_no is missing"))
		}
	}
	return out
}

// CheckSpMismatch flags individuals whose stems carry different species.
func (t *TreeChecks) CheckSpMismatch() []Finding {
	var out []Finding
	for _, indv := range t.index.indvs {
		rows := t.index.byIndv[indv]
		var names []string
		seen := make(map[string]bool)
		for _, r := range rows {
			n := strings.TrimSpace(t.rec.Cell(r, "spc_japan"))
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		if len(names) < 2 {
			continue
		}
		f := t.finding(rows[0], "spc_japan", strings.Join(names, "/"), RuleSpMismatch, SeverityError,
			fmt.Sprintf("stems of individual %s have different species: %s", indv, strings.Join(names, ", ")))
		f.RecordID = t.recordIDs(rows)
		out = append(out, f)
	}
	return out
}

// skipCoordinate reports coordinate cells that legitimately carry no value.
func skipCoordinate(v string) bool {
	return record.IsMissing(v) || v == "nd"
}

// CheckMeshXY flags mesh coordinates that are not a mesh of the plot.
func (t *TreeChecks) CheckMeshXY() []Finding {
	if !t.rec.HasColumn("mesh_xcord") || !t.rec.HasColumn("mesh_ycord") {
		return nil
	}
	geo, ok := t.ref.Geometry(t.rec.PlotID())
	if !ok {
		return nil
	}

	var out []Finding
	for i := 0; i < t.rec.Len(); i++ {
		xs := strings.TrimSpace(t.rec.Cell(i, "mesh_xcord"))
		ys := strings.TrimSpace(t.rec.Cell(i, "mesh_ycord"))
		if skipCoordinate(xs) || skipCoordinate(ys) {
			continue
		}
		target := fmt.Sprintf("mesh_xcord=%s, mesh_ycord=%s", xs, ys)

		x, errX := strconv.Atoi(xs)
		y, errY := strconv.Atoi(ys)
		var msg string
		switch {
		case xs == "" || ys == "":
			msg = "mesh coordinate is blank"
		case errX != nil || errY != nil:
			msg = "mesh coordinate is not an integer"
		case !geo.HasMesh(x, y):
			msg = "mesh coordinates are not a mesh of this plot"
		default:
			continue
		}
		out = append(out, t.finding(i, "mesh_xcord", target, RuleMeshXY, SeverityError, msg))
	}
	return out
}

// CheckStemXY flags stem coordinates that are not numbers within the plot.
func (t *TreeChecks) CheckStemXY() []Finding {
	geo, _ := t.ref.Geometry(t.rec.PlotID())
	limits := map[string]float64{"stem_xcord": geo.StemXMax, "stem_ycord": geo.StemYMax}

	var out []Finding
	for i := 0; i < t.rec.Len(); i++ {
		for _, col := range []string{"stem_xcord", "stem_ycord"} {
			if !t.rec.HasColumn(col) {
				continue
			}
			v := strings.TrimSpace(t.rec.Cell(i, col))
			if skipCoordinate(v) {
				continue
			}
			var msg string
			f, ok := parseNumber(v)
			switch {
			case v == "":
				msg = fmt.Sprintf("%s is blank", col)
			case !ok:
				msg = fmt.Sprintf("%s is not a number (%q)", col, v)
			case f < 0:
				msg = fmt.Sprintf("%s is negative (%s)", col, v)
			case limits[col] > 0 && f > limits[col]:
				msg = fmt.Sprintf("%s is outside the plot (%s > %g)", col, v, limits[col])
			default:
				continue
			}
			out = append(out, t.finding(i, col, col, RuleStemXY, SeverityError, msg))
		}
	}
	return out
}

// CheckMissing flags stems alive in one round and recorded as na in the
// next without a death code.
func (t *TreeChecks) CheckMissing() []Finding {
	var out []Finding
	for _, st := range t.index.Stems {
		for k := 1; k < len(st.Series); k++ {
			prev, cur := st.Series[k-1], st.Series[k]
			if cur.Code != CodeMissing || !prev.alive(t.cfg.AliveThreshold) {
				continue
			}
			col := t.index.Periods[k].Column
			out = append(out, t.finding(st.Row, col, col, RuleMissing, SeverityWarning,
				fmt.Sprintf("alive in %s (%g) but na in %s; dead (d) or missed?",
					t.index.Periods[k-1].Column, prev.Value, col)))
		}
	}
	return out
}

// CheckValuesAfterD flags every cell after a death that is neither dd nor
// na.
func (t *TreeChecks) CheckValuesAfterD() []Finding {
	var out []Finding
	for _, st := range t.index.Stems {
		died := -1
		for k, m := range st.Series {
			if died < 0 {
				if m.Code == CodeDead {
					died = k
				}
				continue
			}
			if m.Code == CodeStillDead || m.Code == CodeMissing || m.Blank || !m.Valid {
				continue
			}
			col := t.index.Periods[k].Column
			out = append(out, t.finding(st.Row, col, col, RuleValuesAfterD, SeverityError,
				fmt.Sprintf("%s is %q after death in %s (expected dd or na)",
					col, strings.TrimSpace(m.Raw), t.index.Periods[died].Column)))
		}
	}
	return out
}

// increment is the change between two measured rounds of one stem.
type increment struct {
	from, to int // positions in the series
	diff     float64
	years    int
}

// increments returns the changes between consecutive measured rounds of a
// series, considering only the cells keep accepts.
func (t *TreeChecks) increments(series []Measurement, keep func(Measurement) bool) (positions []int, incs []increment) {
	for k, m := range series {
		if m.HasValue && keep(m) {
			positions = append(positions, k)
		}
	}
	for i := 1; i < len(positions); i++ {
		a, b := positions[i-1], positions[i]
		incs = append(incs, increment{
			from:  a,
			to:    b,
			diff:  series[b].Value - series[a].Value,
			years: record.YearsBetween(t.index.Periods[a], t.index.Periods[b]),
		})
	}
	return positions, incs
}

func anyMeasured(Measurement) bool { return true }

// FindAnomaly flags gbh increments outside the plausible growth range.
func (t *TreeChecks) FindAnomaly() []Finding {
	g := t.cfg.Growth
	var out []Finding
	for _, st := range t.index.Stems {
		_, incs := t.increments(st.Series, anyMeasured)
		for _, inc := range incs {
			if g.InRange(inc.diff, inc.years) || st.Series[inc.from].Positional() {
				continue
			}
			from, to := t.index.Periods[inc.from].Column, t.index.Periods[inc.to].Column
			kind := "excessive growth"
			if inc.diff < g.MinIncrement {
				kind = "shrinkage"
			}
			target := fmt.Sprintf("%s=%s; %s=%s", from, strings.TrimSpace(st.Series[inc.from].Raw),
				to, strings.TrimSpace(st.Series[inc.to].Raw))
			f := t.finding(st.Row, to, target, RuleAnomaly, SeverityWarning,
				fmt.Sprintf("%s: %+.1f cm in %d year(s), allowed [%.1f, %.1f]",
					kind, inc.diff, inc.years, g.MinIncrement, g.MaxIncrement(inc.years)))
			out = append(out, f)
		}
	}
	return out
}

// CheckValuesRecruits flags recruits whose first gbh is too large to have
// grown from below the registration size since the previous round.
func (t *TreeChecks) CheckValuesRecruits() []Finding {
	var out []Finding
	for _, st := range t.index.Stems {
		first := -1
		for k, m := range st.Series {
			if m.HasValue {
				first = k
				break
			}
		}
		if first < 1 || st.Series[first-1].Code != CodeMissing {
			continue
		}
		prev, cur := t.index.Periods[first-1], t.index.Periods[first]
		years := record.YearsBetween(prev, cur)
		limit := t.cfg.RecruitBase + t.cfg.Growth.MaxIncrement(years)
		v := st.Series[first].Value
		if v < limit {
			continue
		}
		target := fmt.Sprintf("%s=%s; %s=%s", prev.Column, strings.TrimSpace(st.Series[first-1].Raw),
			cur.Column, strings.TrimSpace(st.Series[first].Raw))
		out = append(out, t.finding(st.Row, cur.Column, target, RuleValuesRecruits, SeverityWarning,
			fmt.Sprintf("recruit gbh %g is at or above %.1f; present in earlier rounds?", v, limit)))
	}
	return out
}

// ndOrPlain keeps cells that are plain numbers or nd estimates.
func ndOrPlain(m Measurement) bool { return m.Code == CodeNone || m.Code == CodeND }

// CheckValuesND flags nd estimates inside the series whose increments on
// both sides are plausible, meaning the nd code looks unnecessary.
func (t *TreeChecks) CheckValuesND() []Finding {
	g := t.cfg.Growth
	var out []Finding
	for _, st := range t.index.Stems {
		positions, incs := t.increments(st.Series, ndOrPlain)
		for p := 1; p+1 < len(positions); p++ {
			k := positions[p]
			if st.Raw[k].Code != CodeND || !st.Raw[k].HasValue {
				continue
			}
			in, outInc := incs[p-1], incs[p]
			if !g.InRange(in.diff, in.years) || !g.InRange(outInc.diff, outInc.years) {
				continue
			}
			col := t.index.Periods[k].Column
			out = append(out, t.finding(st.Row, col, col, RuleValuesND, SeverityNotice,
				fmt.Sprintf("%s is %q but the growth around it is normal; is the nd code needed?",
					col, strings.TrimSpace(st.Raw[k].Raw))))
		}
	}
	return out
}
