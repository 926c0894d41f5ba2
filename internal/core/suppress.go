package core

// suppress.go removes findings the data center has already reviewed.
//
// A suppression list is a CSV or XLSX file with the columns plot_id,
// rec_id1, rec_id2 and err_type (or rule). Other columns, such as the
// response written by field staff, are ignored. A finding is dropped when
// its plot id, record id, target and message (or rule id) all equal one
// entry.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/ingest"
)

// Suppression is one reviewed finding.
type Suppression struct {
	PlotID   string
	RecordID string
	Target   string
	// ErrType holds either the message of the finding or its rule id.
	ErrType string
}

func (s Suppression) matches(f check.Finding) bool {
	if s.PlotID != f.PlotID || s.RecordID != f.RecordID || s.Target != f.Target {
		return false
	}
	return s.ErrType == f.Message || s.ErrType == string(f.Rule)
}

// SuppressionList is an immutable set of suppressions grouped by plot.
// The nil list suppresses nothing.
type SuppressionList struct {
	byPlot map[string][]Suppression
	size   int
}

// NewSuppressionList builds a list from entries.
func NewSuppressionList(entries []Suppression) *SuppressionList {
	l := &SuppressionList{byPlot: make(map[string][]Suppression)}
	for _, e := range entries {
		l.byPlot[e.PlotID] = append(l.byPlot[e.PlotID], e)
		l.size++
	}
	return l
}

// Len returns the number of entries.
func (l *SuppressionList) Len() int {
	if l == nil {
		return 0
	}
	return l.size
}

// ForPlot returns the entries of one plot.
func (l *SuppressionList) ForPlot(plotID string) []Suppression {
	if l == nil {
		return nil
	}
	return append([]Suppression(nil), l.byPlot[plotID]...)
}

// Filter returns the findings no entry matches and the number removed.
func (l *SuppressionList) Filter(findings []check.Finding) ([]check.Finding, int) {
	if l.Len() == 0 {
		return findings, 0
	}

	kept := make([]check.Finding, 0, len(findings))
	removed := 0
	for _, f := range findings {
		if l.suppressed(f) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	return kept, removed
}

func (l *SuppressionList) suppressed(f check.Finding) bool {
	for _, s := range l.byPlot[f.PlotID] {
		if s.matches(f) {
			return true
		}
	}
	return false
}

// suppressionColumns maps each field to the header names accepted for it.
var suppressionColumns = struct {
	plot, rec1, rec2, errType []string
}{
	plot:    []string{"plot_id", "plotid"},
	rec1:    []string{"rec_id1"},
	rec2:    []string{"rec_id2"},
	errType: []string{"err_type", "rule"},
}

// LoadSuppressions reads a suppression list from r, a file called name.
func LoadSuppressions(name string, r io.Reader) (*SuppressionList, error) {
	rec, err := ingest.Read(name, r, ingest.Options{})
	if err != nil {
		return nil, fmt.Errorf("read suppression list: %w", err)
	}

	header := MakeHeaderIndex(rec.Columns())
	lookup := func(names []string) (int, bool) {
		for _, n := range names {
			if i, ok := header[n]; ok {
				return i, true
			}
		}
		return 0, false
	}

	var cols [4]int
	var missing []string
	for i, names := range [][]string{
		suppressionColumns.plot,
		suppressionColumns.rec1,
		suppressionColumns.rec2,
		suppressionColumns.errType,
	} {
		idx, ok := lookup(names)
		if !ok {
			missing = append(missing, names[0])
			continue
		}
		cols[i] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("read suppression list: missing required column(s): %s", strings.Join(missing, ", "))
	}

	entries := make([]Suppression, 0, rec.Len())
	for i := 0; i < rec.Len(); i++ {
		row := rec.Row(i)
		entries = append(entries, Suppression{
			PlotID:   strings.TrimSpace(row[cols[0]]),
			RecordID: strings.TrimSpace(row[cols[1]]),
			Target:   strings.TrimSpace(row[cols[2]]),
			ErrType:  strings.TrimSpace(row[cols[3]]),
		})
	}
	return NewSuppressionList(entries), nil
}

// LoadSuppressionFile reads a suppression list from path.
func LoadSuppressionFile(path string) (*SuppressionList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suppression list: %w", err)
	}
	defer f.Close()

	return LoadSuppressions(filepath.Base(path), f)
}
