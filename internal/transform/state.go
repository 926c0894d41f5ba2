// Package transform derives analysis-ready tree data from a census record.
package transform

import (
	"fmt"
	"math"
	"strconv"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// DefaultRecruitCutoff is the gbh (cm) a stem must reach to be counted as
// a recruit.
const DefaultRecruitCutoff = 15.7

// Error states.
const (
	ErrorNone         = 0
	ErrorEstimated    = 1 // nd
	ErrorRepositioned = 2 // cd, vi or vn
)

// Death states.
const (
	Alive     = 0
	Died      = 1 // died during the census interval
	StillDead = 2 // dead in an earlier census
)

// Recruit states.
const (
	NotRecruit = -1 // before recruitment, or never a recruit
	Unknown    = 0
	Recruited  = 1
)

// StateOptions tune AddStateColumns.
type StateOptions struct {
	Cutoff float64
	Growth check.GrowthConfig
}

// DefaultStateOptions returns the cutoff and growth bounds of the field
// manual.
func DefaultStateOptions() StateOptions {
	return StateOptions{Cutoff: DefaultRecruitCutoff, Growth: check.DefaultConfig().Growth}
}

// StemState is the derived state of one stem in every census, in period
// order.
type StemState struct {
	Values  []float64 // NaN where no gbh was measured
	Error   []int
	Dead    []int
	Recruit []int
}

// AddStateColumns returns a copy of rec with the gbh cells replaced by
// their numeric values (blank when unmeasured) and three columns appended
// per census: errorYY, dlYY and recYY.
func AddStateColumns(rec *record.Record, opts StateOptions) (*record.Record, error) {
	periods, err := record.Periods(rec.Columns(), "gbh")
	if err != nil {
		return nil, fmt.Errorf("add state columns: %w", err)
	}
	idx := check.BuildTreeIndex(rec, periods)

	_, rows := rec.Data()
	extra := make([][]string, len(rows))
	for i, st := range idx.Stems {
		s := StemStates(st, periods, opts)
		cells := make([]string, 0, 3*len(periods))
		for j, p := range periods {
			col, _ := rec.ColumnIndex(p.Column)
			rows[i][col] = formatValue(s.Values[j])
		}
		for _, v := range s.Error {
			cells = append(cells, strconv.Itoa(v))
		}
		for _, v := range s.Dead {
			cells = append(cells, strconv.Itoa(v))
		}
		for _, v := range s.Recruit {
			cells = append(cells, strconv.Itoa(v))
		}
		extra[i] = cells
	}

	var names []string
	for _, prefix := range []string{"error", "dl", "rec"} {
		for _, p := range periods {
			names = append(names, prefix+p.Suffix)
		}
	}

	replaced, err := rec.WithRows(rows)
	if err != nil {
		return nil, fmt.Errorf("add state columns: %w", err)
	}
	out, err := replaced.WithColumns(names, extra)
	if err != nil {
		return nil, fmt.Errorf("add state columns: %w", err)
	}
	return out, nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StemStates derives the error, death and recruit states of one stem.
func StemStates(st check.Stem, periods []record.Period, opts StateOptions) StemState {
	n := len(st.Series)
	s := StemState{
		Values:  make([]float64, n),
		Error:   make([]int, n),
		Dead:    make([]int, n),
		Recruit: make([]int, n),
	}

	died := false
	for j := 0; j < n; j++ {
		raw, m := st.Raw[j], st.Series[j]

		s.Values[j] = math.NaN()
		if m.HasValue {
			switch m.Code {
			case check.CodeNone, check.CodeND, check.CodeCD, check.CodeVI, check.CodeVN:
				s.Values[j] = m.Value
			}
		}

		switch raw.Code {
		case check.CodeND:
			s.Error[j] = ErrorEstimated
		case check.CodeCD, check.CodeVI, check.CodeVN:
			s.Error[j] = ErrorRepositioned
		}

		switch {
		case died:
			s.Dead[j] = StillDead
		case m.Code == check.CodeDead:
			s.Dead[j] = Died
			died = true
		case m.Code == check.CodeStillDead:
			s.Dead[j] = StillDead
		}
	}

	s.Recruit = recruits(s, periods, opts)
	return s
}

// recruits marks the census in which a stem first crossed the cutoff as
// Recruited and every earlier census as NotRecruit. A stem that appears
// above the cutoff by more than one interval of growth was missed earlier
// rather than recruited.
func recruits(s StemState, periods []record.Period, opts StateOptions) []int {
	n := len(s.Values)
	rec := make([]int, n)
	if n == 0 {
		return rec
	}

	missing := func(j int) bool { return math.IsNaN(s.Values[j]) }
	below := func(j int) bool { return !missing(j) && s.Values[j] < opts.Cutoff }
	uncounted := func(j int) bool { return missing(j) || below(j) }
	has := func(limit, v int) bool {
		for _, r := range rec[:limit] {
			if r == v {
				return true
			}
		}
		return false
	}
	fill := func(limit int) {
		for k := 0; k < limit; k++ {
			rec[k] = NotRecruit
		}
	}

	if uncounted(0) || s.Dead[0] == Died {
		if s.Error[0] == ErrorNone {
			rec[0] = NotRecruit
		}
	}

	for j := 0; j < n-1; j++ {
		if uncounted(j) == uncounted(j+1) || missing(j+1) {
			continue
		}
		if !missing(j) && s.Values[j] > s.Values[j+1] {
			continue
		}
		if has(j+1, Recruited) {
			continue
		}

		switch {
		case s.Error[j] == ErrorNone && s.Error[j+1] == ErrorNone:
			years := record.YearsBetween(periods[j], periods[j+1])
			if s.Values[j+1] < opts.Cutoff+opts.Growth.MaxIncrement(years) || !missing(j) {
				rec[j+1] = Recruited
				fill(j + 1)
			} else if has(j+1, NotRecruit) {
				fill(j)
			}
		case s.Error[j] == ErrorEstimated:
			if has(j+1, NotRecruit) {
				first := 0
				for s.Error[first] != ErrorEstimated {
					first++
				}
				fill(first)
			}
		}
	}
	return rec
}
