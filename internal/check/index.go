package check

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

// Stem is one row of tree data with its gbh series in period order.
type Stem struct {
	Row  int
	Tag  string
	Indv string

	// Raw holds the parsed cells, Series the same cells with invalid values
	// masked and dead values rewritten.
	Raw    []Measurement
	Series []Measurement
}

// TreeIndex is the per-stem view of tree data shared by the tree rules.
type TreeIndex struct {
	Periods []record.Period
	Stems   []Stem

	byTag  map[string][]int
	byIndv map[string][]int
	indvs  []string // first-seen order
}

// BuildTreeIndex parses every gbh cell of rec once.
func BuildTreeIndex(rec *record.Record, periods []record.Period) *TreeIndex {
	idx := &TreeIndex{
		Periods: periods,
		Stems:   make([]Stem, rec.Len()),
		byTag:   make(map[string][]int),
		byIndv:  make(map[string][]int),
	}
	for i := 0; i < rec.Len(); i++ {
		st := Stem{
			Row:  i,
			Tag:  strings.TrimSpace(rec.Cell(i, "tag_no")),
			Indv: strings.TrimSpace(rec.Cell(i, "indv_no")),
			Raw:  make([]Measurement, len(periods)),
		}
		for j, p := range periods {
			st.Raw[j] = ParseTree(rec.Cell(i, p.Column))
		}
		st.Series = normalizeSeries(st.Raw)
		idx.Stems[i] = st

		if st.Tag != "" {
			idx.byTag[st.Tag] = append(idx.byTag[st.Tag], i)
		}
		if st.Indv != "" && !record.IsMissing(st.Indv) {
			if _, seen := idx.byIndv[st.Indv]; !seen {
				idx.indvs = append(idx.indvs, st.Indv)
			}
			idx.byIndv[st.Indv] = append(idx.byIndv[st.Indv], i)
		}
	}
	return idx
}

const dateLayout = "20060102"

var dateRe = regexp.MustCompile(`^[0-9]{8}$`)

// ParseDate parses a YYYYMMDD cell.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !dateRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween returns to - from in whole days.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// TrapRow is one row of trap data with its parsed dates.
type TrapRow struct {
	Row       int
	Trap      string
	Installed string // s_date1 as entered
	Collected string // s_date2 as entered

	InstalledAt time.Time
	CollectedAt time.Time

	// Dated is false when either date does not parse; such rows are left
	// out of the period rules.
	Dated bool
}

// TrapPeriod is one (installation, collection) pair and the rows in it.
type TrapPeriod struct {
	Installed   string
	Collected   string
	InstalledAt time.Time
	CollectedAt time.Time
	Rows        []int
}

// TrapIndex is the per-trap and per-period view of litter and seed data.
type TrapIndex struct {
	Rows []TrapRow

	periods      []TrapPeriod // sorted by installation then collection
	byTrap       map[string][]int
	traps        []string
	collections  []string // sorted by date
	byCollection map[string][]int
}

// BuildTrapIndex parses every trap row of rec once.
func BuildTrapIndex(rec *record.Record) *TrapIndex {
	idx := &TrapIndex{
		Rows:         make([]TrapRow, rec.Len()),
		byTrap:       make(map[string][]int),
		byCollection: make(map[string][]int),
	}
	periodPos := make(map[[2]string]int)

	for i := 0; i < rec.Len(); i++ {
		tr := TrapRow{
			Row:       i,
			Trap:      strings.TrimSpace(rec.Cell(i, "trap_id")),
			Installed: strings.TrimSpace(rec.Cell(i, "s_date1")),
			Collected: strings.TrimSpace(rec.Cell(i, "s_date2")),
		}
		in, ok1 := ParseDate(tr.Installed)
		out, ok2 := ParseDate(tr.Collected)
		tr.InstalledAt, tr.CollectedAt, tr.Dated = in, out, ok1 && ok2
		idx.Rows[i] = tr

		if tr.Trap != "" {
			if _, seen := idx.byTrap[tr.Trap]; !seen {
				idx.traps = append(idx.traps, tr.Trap)
			}
			idx.byTrap[tr.Trap] = append(idx.byTrap[tr.Trap], i)
		}
		if !tr.Dated {
			continue
		}

		key := [2]string{tr.Installed, tr.Collected}
		pos, ok := periodPos[key]
		if !ok {
			pos = len(idx.periods)
			periodPos[key] = pos
			idx.periods = append(idx.periods, TrapPeriod{
				Installed:   tr.Installed,
				Collected:   tr.Collected,
				InstalledAt: in,
				CollectedAt: out,
			})
		}
		idx.periods[pos].Rows = append(idx.periods[pos].Rows, i)

		if _, seen := idx.byCollection[tr.Collected]; !seen {
			idx.collections = append(idx.collections, tr.Collected)
		}
		idx.byCollection[tr.Collected] = append(idx.byCollection[tr.Collected], i)
	}

	sort.SliceStable(idx.periods, func(a, b int) bool {
		pa, pb := idx.periods[a], idx.periods[b]
		if !pa.InstalledAt.Equal(pb.InstalledAt) {
			return pa.InstalledAt.Before(pb.InstalledAt)
		}
		return pa.CollectedAt.Before(pb.CollectedAt)
	})
	sort.Strings(idx.traps)
	// YYYYMMDD sorts chronologically as text.
	sort.Strings(idx.collections)

	for trap, rows := range idx.byTrap {
		sort.SliceStable(rows, func(a, b int) bool {
			ra, rb := idx.Rows[rows[a]], idx.Rows[rows[b]]
			if ra.Dated != rb.Dated {
				return ra.Dated
			}
			if !ra.InstalledAt.Equal(rb.InstalledAt) {
				return ra.InstalledAt.Before(rb.InstalledAt)
			}
			return ra.CollectedAt.Before(rb.CollectedAt)
		})
		idx.byTrap[trap] = rows
	}
	return idx
}

// Periods returns the dated periods in chronological order.
func (t *TrapIndex) Periods() []TrapPeriod {
	out := make([]TrapPeriod, len(t.periods))
	for i, p := range t.periods {
		p.Rows = append([]int(nil), p.Rows...)
		out[i] = p
	}
	return out
}

// Traps returns the trap ids present in the data, sorted.
func (t *TrapIndex) Traps() []string { return append([]string(nil), t.traps...) }

// RowsOfTrap returns the rows of one trap in chronological order; undated
// rows come last.
func (t *TrapIndex) RowsOfTrap(trap string) []int { return append([]int(nil), t.byTrap[trap]...) }

// Collections returns the distinct dated collection days in order.
func (t *TrapIndex) Collections() []string { return append([]string(nil), t.collections...) }

// RowsCollectedOn returns the dated rows collected on day in row order.
func (t *TrapIndex) RowsCollectedOn(day string) []int {
	return append([]int(nil), t.byCollection[day]...)
}
