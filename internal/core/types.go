package core

import (
	"io"
	"regexp"
	"time"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// ColumnType represents the expected content of a survey column.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnDate
	ColumnMeasurement
	ColumnCoordinate
)

func (t ColumnType) String() string {
	switch t {
	case ColumnDate:
		return "date"
	case ColumnMeasurement:
		return "measurement"
	case ColumnCoordinate:
		return "coordinate"
	default:
		return "text"
	}
}

// ColumnSpec describes one column, or one family of columns, of a data kind.
type ColumnSpec struct {
	Name     string         // Exact column name; empty when Pattern is set
	Pattern  *regexp.Regexp // Column family such as gbhYY
	Example  string         // Header written to templates for a pattern column
	Type     ColumnType
	Required bool // Column (or at least one column of the family) must exist
	Label    string
}

// Key returns the name or pattern used to refer to the spec.
func (c ColumnSpec) Key() string {
	if c.Pattern != nil {
		return c.Pattern.String()
	}
	return c.Name
}

// KindInfo contains display information about a data kind.
type KindInfo struct {
	Kind  record.Kind
	Label string // "Tree census"
	Group string // "census" or "trap"
}

// HeaderIndex maps column names to their position in the header row.
type HeaderIndex map[string]int

// NewCheckSetFunc builds the check set of a kind for one record.
type NewCheckSetFunc func(rec *record.Record, opts check.Options) (check.CheckSet, error)

// KindDefinition contains everything needed to check a data kind.
type KindDefinition struct {
	Info    KindInfo
	Columns []ColumnSpec
	New     NewCheckSetFunc
}

// RequiredColumns returns the keys of the required columns in order.
func (d KindDefinition) RequiredColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if c.Required {
			out = append(out, c.Key())
		}
	}
	return out
}

// Template returns the header row of an empty data file for the kind.
func (d KindDefinition) Template() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c.Pattern != nil {
			out = append(out, c.Example)
			continue
		}
		out = append(out, c.Name)
	}
	return out
}

// Report is the result of checking one dataset.
type Report struct {
	ID       string          `json:"id"`
	FileName string          `json:"file_name,omitempty"`
	PlotID   string          `json:"plot_id"`
	Kind     record.Kind     `json:"kind"`
	Thorough bool            `json:"thorough"`
	Rows     int             `json:"rows"`
	Rules    []check.RuleID  `json:"rules"`
	Findings []check.Finding `json:"findings"`

	// Suppressed counts findings removed by the suppression list.
	Suppressed int `json:"suppressed"`

	BySeverity map[check.Severity]int `json:"by_severity"`
	ByRule     map[check.RuleID]int   `json:"by_rule"`

	Duration time.Duration `json:"duration_ns"`
}

// HasErrors reports whether any finding has error severity.
func (r *Report) HasErrors() bool {
	return r.BySeverity[check.SeverityError] > 0
}

// CheckOptions tune a single check run. Zero values fall back to the
// service configuration.
type CheckOptions struct {
	Kind     record.Kind // overrides the guessed kind when set
	PlotID   string      // overrides the plot id of the file when set
	Thorough bool
	Enable   []check.RuleID
	Disable  []check.RuleID
}

// BatchFile is one named input of a batch run.
type BatchFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// BatchResult pairs a batch input with its report or error.
type BatchResult struct {
	Name   string
	Report *Report
	Err    error
}
