// Package export writes check findings and cleaned data files.
//
// Findings files are meant to be sent back to the field site: each row is
// one finding, and the last column (サイトでの対応) is left blank for the
// site to fill in.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// ResponseColumn is the blank column the field site fills in.
const ResponseColumn = "サイトでの対応"

// ReportPrefix starts findings sheet and file names ("items to confirm").
const ReportPrefix = "確認事項"

// now is replaced in tests.
var now = time.Now

// SheetName returns the findings sheet name for t, e.g. 確認事項240131.
func SheetName(t time.Time) string {
	return ReportPrefix + t.Format("060102")
}

// Header returns the findings header for a data kind. Tree findings are
// keyed by tag number, trap findings by installation date and trap id.
func Header(kind record.Kind) []string {
	if kind == record.KindTree {
		return []string{"plotid", "tag_no", "エラー対象", "line", "column", "rule", "severity", "エラー内容", ResponseColumn}
	}
	return []string{"plotid", "s_date1", "trap_id", "line", "column", "rule", "severity", "エラー内容", ResponseColumn}
}

// Rows returns the findings as table rows, sorted by record id (then by
// trap id for trap data). The response column is blank.
func Rows(findings []check.Finding, kind record.Kind) [][]string {
	sorted := append([]check.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.RecordID != b.RecordID {
			return lessNatural(a.RecordID, b.RecordID)
		}
		if kind != record.KindTree && a.Target != b.Target {
			return a.Target < b.Target
		}
		return false
	})

	rows := make([][]string, len(sorted))
	for i, f := range sorted {
		line := ""
		if n := f.Line(); n > 0 {
			line = strconv.Itoa(n)
		}
		rows[i] = []string{
			f.PlotID, f.RecordID, f.Target, line, f.Column,
			string(f.Rule), string(f.Severity), f.Message, "",
		}
	}
	return rows
}

// lessNatural orders numeric ids numerically and everything else as text.
// Numbers sort before text.
func lessNatural(a, b string) bool {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// WriteCSV writes the findings as CSV.
func WriteCSV(w io.Writer, findings []check.Finding, kind record.Kind) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(kind)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(Rows(findings, kind)); err != nil {
		return fmt.Errorf("write findings: %w", err)
	}
	return nil
}

// WriteXLSX writes the findings as a workbook with one sheet named after
// today's date. The header row is bold on grey.
func WriteXLSX(w io.Writer, findings []check.Finding, kind record.Kind) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(now())
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := Header(kind)
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range Rows(findings, kind) {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#7E7E7E"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(sheet, "A", lastCol, 14); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	msgCol, _ := excelize.ColumnNumberToName(len(header) - 1)
	if err := f.SetColWidth(sheet, msgCol, msgCol, 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}
