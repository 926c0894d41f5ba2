// Package record holds the in-memory representation of one survey data file.
//
// A Record is built once per input file (see package ingest) and is read-only
// afterwards: every accessor returns copies, and derived datasets are produced
// with [Record.WithColumns] or by rebuilding through [New].
package record

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Missing is the sentinel written in cells that were legitimately not
// measured (a stem not yet recruited, a trap not installed, ...).
const Missing = "na"

// IsMissing reports whether v is the missing sentinel. The upper-case
// spelling used by older field sheets is accepted as an alias.
func IsMissing(v string) bool {
	return v == Missing || v == "NA"
}

// IsBlank reports whether v is an accidental blank cell.
func IsBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// Options carries the optional attributes of a Record.
type Options struct {
	PlotID   string
	Kind     Kind // guessed from the columns when empty
	Metadata map[string]string
	Comments [][]string
}

// Record is a tabular survey dataset: ordered unique columns and rows holding
// exactly one cell per column.
type Record struct {
	plotID   string
	kind     Kind
	columns  []string
	index    map[string]int
	rows     [][]string
	metadata map[string]string
	comments [][]string
}

// New validates the shape of the data and returns a Record owning copies of
// columns and rows.
func New(columns []string, rows [][]string, opts Options) (*Record, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("record: no columns")
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("record: column %d has an empty name", i+1)
		}
		if prev, dup := index[c]; dup {
			return nil, fmt.Errorf("record: duplicate column %q (positions %d and %d)", c, prev+1, i+1)
		}
		index[c] = i
	}

	data := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("record: row %d has %d cells, want %d", i+1, len(row), len(columns))
		}
		data[i] = append([]string(nil), row...)
	}

	kind := opts.Kind
	if kind == "" {
		kind = GuessKind(columns)
	}

	meta := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	return &Record{
		plotID:   opts.PlotID,
		kind:     kind,
		columns:  append([]string(nil), columns...),
		index:    index,
		rows:     data,
		metadata: meta,
		comments: copyRows(opts.Comments),
	}, nil
}

// PlotID returns the plot identifier, e.g. "TM-DB1".
func (r *Record) PlotID() string { return r.plotID }

// Kind returns the data kind of the record.
func (r *Record) Kind() Kind { return r.kind }

// Len returns the number of data rows.
func (r *Record) Len() int { return len(r.rows) }

// Columns returns the column names in file order.
func (r *Record) Columns() []string { return append([]string(nil), r.columns...) }

// HasColumn reports whether the record declares the column.
func (r *Record) HasColumn(name string) bool {
	_, ok := r.index[name]
	return ok
}

// ColumnIndex returns the position of a column.
func (r *Record) ColumnIndex(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Cell returns the value of a cell, or "" when the column does not exist.
func (r *Record) Cell(row int, column string) string {
	i, ok := r.index[column]
	if !ok {
		return ""
	}
	return r.rows[row][i]
}

// Row returns a copy of one row.
func (r *Record) Row(i int) []string { return append([]string(nil), r.rows[i]...) }

// Float parses a cell as a number. Surrounding spaces are ignored.
func (r *Record) Float(row int, column string) (float64, bool) {
	v := strings.TrimSpace(r.Cell(row, column))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Select returns the columns whose names match re, in file order.
func (r *Record) Select(re *regexp.Regexp) []string {
	var out []string
	for _, c := range r.columns {
		if re.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

// Metadata returns a copy of the metadata parsed from comment lines.
func (r *Record) Metadata() map[string]string {
	out := make(map[string]string, len(r.metadata))
	for k, v := range r.metadata {
		out[k] = v
	}
	return out
}

// Comments returns a copy of the comment lines.
func (r *Record) Comments() [][]string { return copyRows(r.comments) }

// Data returns deep copies of the columns and rows.
func (r *Record) Data() ([]string, [][]string) {
	return r.Columns(), copyRows(r.rows)
}

// WithColumns returns a new record with extra columns appended. values holds
// one slice per row, each with len(columns) cells.
func (r *Record) WithColumns(columns []string, values [][]string) (*Record, error) {
	if len(values) != len(r.rows) {
		return nil, fmt.Errorf("record: got values for %d rows, want %d", len(values), len(r.rows))
	}
	cols := append(r.Columns(), columns...)
	rows := make([][]string, len(r.rows))
	for i, row := range r.rows {
		if len(values[i]) != len(columns) {
			return nil, fmt.Errorf("record: row %d has %d new cells, want %d", i+1, len(values[i]), len(columns))
		}
		rows[i] = append(append([]string(nil), row...), values[i]...)
	}
	return New(cols, rows, r.options())
}

// WithRows returns a new record with the same columns and attributes but
// different rows.
func (r *Record) WithRows(rows [][]string) (*Record, error) {
	return New(r.columns, rows, r.options())
}

func (r *Record) options() Options {
	return Options{
		PlotID:   r.plotID,
		Kind:     r.kind,
		Metadata: r.metadata,
		Comments: r.comments,
	}
}

func (r *Record) String() string {
	s := fmt.Sprintf("Record(rows=%d, columns=%d", len(r.rows), len(r.columns))
	if r.plotID != "" {
		s += ", plot_id=" + strconv.Quote(r.plotID)
	}
	return s + ", kind=" + string(r.kind) + ")"
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
