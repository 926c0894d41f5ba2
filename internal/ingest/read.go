// Package ingest turns survey data files into [record.Record] values.
//
// CSV and Excel workbooks are both read as a grid of strings. Blank edge
// rows and columns are stripped, comment rows (first cell starting with "#")
// are split off and searched for metadata, and the first remaining row
// becomes the header.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .csv,
	// .xlsx and .xlsm.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmpty is returned when nothing but comments and blanks remain.
	ErrEmpty = errors.New("empty file: no data rows")
	// ErrTooLarge is returned when the input exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("file too large")
)

// DefaultSheet is the worksheet read from workbooks when it exists.
const DefaultSheet = "Data"

// Metadata keys looked up in the comment rows. The value sits two cells to
// the right of the key.
var MetadataKeys = []string{
	"DATA CREATED", "DATA CREATER", "DATA TITLE", "SITE NAME", "PLOT NAME",
	"PLOT ID", "PLOT SIZE", "NO. OF TRAPS", "TRAP SIZE",
}

var plotIDPattern = regexp.MustCompile(`[A-Z]{2}-(AT|EC|BC|EB|DB)[0-9]`)

// Options control how a file is read. The zero value reads UTF-8 CSV or
// the Data sheet, guesses the kind and takes the plot id from the metadata
// or the file name.
type Options struct {
	PlotID   string      // overrides metadata and file name
	Kind     record.Kind // overrides the guess from the header
	Sheet    string      // worksheet name; DefaultSheet, then the first sheet
	Encoding string      // CSV text encoding: utf-8 (default) or shift_jis
	MaxBytes int64       // 0 means unlimited

	// CommentPrefix marks comment rows; "#" when empty. NoComments keeps
	// every row as data.
	CommentPrefix string
	NoComments    bool

	// Clean applies Clean to every data cell.
	Clean bool
}

func (o Options) commentPrefix() string {
	if o.NoComments {
		return ""
	}
	if o.CommentPrefix == "" {
		return "#"
	}
	return o.CommentPrefix
}

// ReadFile reads the data file at path.
func ReadFile(path string, opts Options) (*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	return Read(filepath.Base(path), f, opts)
}

// Read parses r as the file called name. The extension of name selects the
// parser.
func Read(name string, r io.Reader, opts Options) (*record.Record, error) {
	grid, err := ReadGrid(name, r, opts)
	if err != nil {
		return nil, err
	}
	return FromGrid(name, grid, opts)
}

// ReadGrid returns the raw cells of the file with blank edges stripped and
// every row padded to the same width.
func ReadGrid(name string, r io.Reader, opts Options) ([][]string, error) {
	r = limit(r, opts.MaxBytes)

	var (
		grid [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		grid, err = readCSV(r, opts.Encoding)
	case ".xlsx", ".xlsm":
		grid, err = readXLSX(r, opts.Sheet)
	default:
		return nil, fmt.Errorf("%s: %w %q (want .csv, .xlsx or .xlsm)", name, ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return stripEdges(rectangular(grid)), nil
}

func readCSV(r io.Reader, encoding string) ([][]string, error) {
	text, err := decodeText(r, encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(text)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("parse xlsx: workbook has no sheets")
	}

	name := sheets[0]
	want := sheet
	if want == "" {
		want = DefaultSheet
	}
	found := false
	for _, s := range sheets {
		if s == want {
			name = s
			found = true
			break
		}
	}
	if sheet != "" && !found {
		return nil, fmt.Errorf("parse xlsx: sheet %q not found (have %s)", sheet, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: sheet %q: %w", name, err)
	}
	return rows, nil
}

// rectangular pads every row to the width of the widest one.
func rectangular(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// stripEdges removes leading and trailing rows and columns whose cells are
// all empty. Interior blank rows and columns are kept.
func stripEdges(grid [][]string) [][]string {
	if len(grid) == 0 {
		return nil
	}
	width := len(grid[0])

	blankRow := func(i int) bool {
		for _, c := range grid[i] {
			if c != "" {
				return false
			}
		}
		return true
	}
	blankCol := func(j int) bool {
		for _, row := range grid {
			if row[j] != "" {
				return false
			}
		}
		return true
	}

	top, bottom := 0, len(grid)
	for top < bottom && blankRow(top) {
		top++
	}
	for bottom > top && blankRow(bottom-1) {
		bottom--
	}
	if top == bottom {
		return nil
	}

	left, right := 0, width
	for left < right && blankCol(left) {
		left++
	}
	for right > left && blankCol(right-1) {
		right--
	}

	out := make([][]string, 0, bottom-top)
	for _, row := range grid[top:bottom] {
		out = append(out, row[left:right])
	}
	return out
}

// SplitComments separates comment rows from data rows. Both blocks get
// their own blank edges stripped.
func SplitComments(grid [][]string, prefix string) (data, comments [][]string) {
	for _, row := range grid {
		if prefix != "" && len(row) > 0 && strings.HasPrefix(row[0], prefix) {
			comments = append(comments, row)
			continue
		}
		data = append(data, row)
	}
	return stripEdges(rectangular(data)), stripEdges(rectangular(comments))
}

// Metadata extracts the MetadataKeys found in comment rows.
func Metadata(comments [][]string) map[string]string {
	meta := make(map[string]string)
	for _, key := range MetadataKeys {
		for _, row := range comments {
			j := indexOf(row, key)
			if j < 0 {
				continue
			}
			if j+2 < len(row) {
				meta[key] = row[j+2]
			} else {
				meta[key] = ""
			}
			break
		}
	}
	return meta
}

func indexOf(row []string, v string) int {
	for i, c := range row {
		if c == v {
			return i
		}
	}
	return -1
}

// PlotIDFromName finds a plot id such as "TM-DB1" in a file name.
func PlotIDFromName(name string) string {
	return plotIDPattern.FindString(filepath.Base(name))
}

// FromGrid builds a record from a stripped grid.
func FromGrid(name string, grid [][]string, opts Options) (*record.Record, error) {
	data, comments := SplitComments(grid, opts.commentPrefix())
	if len(data) < 2 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}

	meta := Metadata(comments)

	plotID := opts.PlotID
	if plotID == "" {
		plotID = strings.TrimSpace(meta["PLOT ID"])
	}
	if plotID == "" {
		plotID = PlotIDFromName(name)
	}

	header := make([]string, len(data[0]))
	for i, h := range data[0] {
		header[i] = strings.TrimSpace(h)
	}
	rows := data[1:]
	if opts.Clean {
		rows = CleanRows(rows)
	}

	rec, err := record.New(header, rows, record.Options{
		PlotID:   plotID,
		Kind:     opts.Kind,
		Metadata: meta,
		Comments: comments,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rec, nil
}
