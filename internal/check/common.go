package check

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/species"
)

var dateColumnRe = regexp.MustCompile(`^s_date`)

// Common holds the rules shared by all data kinds.
type Common struct {
	rec  *record.Record
	cfg  Config
	dict species.Dictionary

	kind          record.Kind
	idColumn      string // tag_no or s_date1
	trapColumn    string // trap_id, empty for tree data
	speciesColumn string // spc_japan or spc, may be empty
	dateColumns   []string
	measureCols   []string
	parse         func(string) Measurement

	// zeroAllowed is set for trap data, where zero weights and counts are
	// real observations.
	zeroAllowed bool
}

func newCommon(rec *record.Record, kind record.Kind, opts Options, measureCols []string) *Common {
	c := &Common{
		rec:         rec,
		cfg:         opts.Config,
		dict:        opts.Dictionary,
		kind:        kind,
		dateColumns: rec.Select(dateColumnRe),
		measureCols: measureCols,
	}
	if kind == record.KindTree {
		c.idColumn = "tag_no"
		c.parse = ParseTree
	} else {
		c.idColumn = "s_date1"
		c.trapColumn = "trap_id"
		c.parse = ParseTrap
		c.zeroAllowed = true
	}
	if col, ok := species.SpeciesColumn(rec); ok {
		c.speciesColumn = col
	}
	return c
}

// recordID returns the human identifier of a row.
func (c *Common) recordID(row int) string {
	return strings.TrimSpace(c.rec.Cell(row, c.idColumn))
}

// finding builds a row-level finding. For trap data the target is the trap
// id; otherwise it is the given target.
func (c *Common) finding(row int, column string, target string, rule RuleID, sev Severity, msg string) Finding {
	f := Finding{
		PlotID:   c.rec.PlotID(),
		Row:      row,
		Column:   column,
		Target:   target,
		Rule:     rule,
		Severity: sev,
		Message:  msg,
	}
	if row != NoRow {
		f.RecordID = c.recordID(row)
		if c.trapColumn != "" {
			f.Target = strings.TrimSpace(c.rec.Cell(row, c.trapColumn))
		}
	}
	return f
}

// recordIDs joins the distinct record ids of rows in row order.
func (c *Common) recordIDs(rows []int) string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range rows {
		id := c.recordID(r)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return strings.Join(ids, "; ")
}

// CheckInvalidDate flags s_date cells that are not a valid YYYYMMDD date or
// a missing token.
func (c *Common) CheckInvalidDate() []Finding {
	var out []Finding
	for i := 0; i < c.rec.Len(); i++ {
		for _, col := range c.dateColumns {
			v := strings.TrimSpace(c.rec.Cell(i, col))
			if record.IsMissing(v) || strings.HasPrefix(v, "nd") {
				continue
			}
			if _, ok := ParseDate(v); ok {
				continue
			}
			out = append(out, c.finding(i, col, col, RuleInvalidDate, SeverityError,
				fmt.Sprintf("invalid date in %s (%q)", col, v)))
		}
	}
	return out
}

// speciesNames returns the distinct non-blank species names in first-seen
// order with the rows they appear in, and the rows with a blank name.
func (c *Common) speciesNames() (names []string, rows map[string][]int, blanks []int) {
	rows = make(map[string][]int)
	if c.speciesColumn == "" {
		return nil, rows, nil
	}
	for i := 0; i < c.rec.Len(); i++ {
		name := strings.TrimSpace(c.rec.Cell(i, c.speciesColumn))
		if name == "" {
			blanks = append(blanks, i)
			continue
		}
		if _, seen := rows[name]; !seen {
			names = append(names, name)
		}
		rows[name] = append(rows[name], i)
	}
	return names, rows, blanks
}

// CheckSpNotInList flags species names absent from the dictionary, once per
// distinct name, and blank species cells.
func (c *Common) CheckSpNotInList() []Finding {
	if c.dict == nil || c.speciesColumn == "" {
		return nil
	}
	names, rows, blanks := c.speciesNames()

	var out []Finding
	for _, name := range names {
		if _, ok := c.dict.Lookup(name); ok {
			continue
		}
		rs := rows[name]
		f := c.finding(NoRow, c.speciesColumn, name, RuleSpNotInList, SeverityError,
			fmt.Sprintf("species %q is not in the species list (local or misspelled name?)", name))
		f.Row = rs[0]
		f.RecordID = c.recordIDs(rs)
		out = append(out, f)
	}
	for _, r := range blanks {
		out = append(out, c.finding(r, c.speciesColumn, c.speciesColumn, RuleSpNotInList, SeverityError,
			"species name is blank"))
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Row < out[b].Row })
	return out
}

// synonymCollisions groups the distinct names of rows by synonym group and
// returns the groups holding two or more names, in first-seen order. Width
// and case variants of one name are the same name.
func (c *Common) synonymCollisions(rows []int) [][]string {
	byGroup := make(map[string][]string)
	var groups []string
	seen := make(map[string]bool)
	for _, r := range rows {
		name := strings.TrimSpace(c.rec.Cell(r, c.speciesColumn))
		key := species.Normalize(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		e, ok := c.dict.Lookup(name)
		if !ok {
			continue
		}
		g := e.SynonymGroup
		if _, ok := byGroup[g]; !ok {
			groups = append(groups, g)
		}
		byGroup[g] = append(byGroup[g], name)
	}

	var out [][]string
	for _, g := range groups {
		if len(byGroup[g]) > 1 {
			out = append(out, byGroup[g])
		}
	}
	return out
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// datasetSynonyms reports collisions across the whole dataset.
func (c *Common) datasetSynonyms(sev Severity) []Finding {
	var out []Finding
	for _, names := range c.synonymCollisions(allRows(c.rec.Len())) {
		out = append(out, c.finding(NoRow, c.speciesColumn, strings.Join(names, "/"), RuleSynonym, sev,
			fmt.Sprintf("synonyms used in the same dataset: %s", strings.Join(names, ", "))))
	}
	return out
}

// CheckSynonym flags different names for the same taxon. For trap data the
// whole dataset is one group.
func (c *Common) CheckSynonym() []Finding {
	if c.dict == nil || c.speciesColumn == "" {
		return nil
	}
	return c.datasetSynonyms(SeverityWarning)
}

// CheckLocalName flags names that have a standard Japanese name.
func (c *Common) CheckLocalName() []Finding {
	if c.dict == nil || c.speciesColumn == "" {
		return nil
	}
	names, rows, _ := c.speciesNames()

	var out []Finding
	for _, name := range names {
		e, ok := c.dict.Lookup(name)
		if !ok || !e.IsLocalName() {
			continue
		}
		rs := rows[name]
		f := c.finding(NoRow, c.speciesColumn, name, RuleLocalName, SeverityNotice,
			fmt.Sprintf("%q is a local name; the standard name is %q", name, e.StandardName))
		f.Row = rs[0]
		f.RecordID = c.recordIDs(rs)
		out = append(out, f)
	}
	return out
}

// CheckBlankInDataCols flags blank measurement cells.
func (c *Common) CheckBlankInDataCols() []Finding {
	var out []Finding
	for i := 0; i < c.rec.Len(); i++ {
		for _, col := range c.measureCols {
			if record.IsBlank(c.rec.Cell(i, col)) {
				out = append(out, c.finding(i, col, col, RuleBlankInDataCols, SeverityError,
					fmt.Sprintf("%s is blank", col)))
			}
		}
	}
	return out
}

// CheckInvalidValues flags measurement cells that are neither a number nor
// a permitted status code.
func (c *Common) CheckInvalidValues() []Finding {
	var out []Finding
	for i := 0; i < c.rec.Len(); i++ {
		for _, col := range c.measureCols {
			v := c.rec.Cell(i, col)
			if c.parse(v).Valid {
				continue
			}
			out = append(out, c.finding(i, col, col, RuleInvalidValues, SeverityError,
				fmt.Sprintf("invalid value in %s (%q)", col, strings.TrimSpace(v))))
		}
	}
	return out
}

// CheckPositive flags plain numbers that cannot be physically right: gbh
// <= 0, or a negative weight or count.
func (c *Common) CheckPositive() []Finding {
	var out []Finding
	for i := 0; i < c.rec.Len(); i++ {
		for _, col := range c.measureCols {
			m := c.parse(c.rec.Cell(i, col))
			if m.Code != CodeNone || !m.HasValue {
				continue
			}
			bad := m.Value < 0 || (!c.zeroAllowed && m.Value == 0)
			if !bad {
				continue
			}
			out = append(out, c.finding(i, col, col, RulePositive, SeverityError,
				fmt.Sprintf("%s must be positive (%s)", col, strings.TrimSpace(m.Raw))))
		}
	}
	return out
}

// requireColumns returns a *SchemaError naming every required column and
// pattern missing from rec.
func requireColumns(rec *record.Record, kind record.Kind, names []string, patterns []*regexp.Regexp) error {
	var missing []string
	for _, n := range names {
		if !rec.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	for _, re := range patterns {
		if len(rec.Select(re)) == 0 {
			missing = append(missing, re.String())
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Kind: kind, Missing: missing}
	}
	return nil
}
