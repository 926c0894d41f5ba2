package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

var (
	decimalPattern  = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
	integerPattern  = regexp.MustCompile(`^[+-]?[0-9]+$`)
	datetimePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}\s[0-9]{2}:[0-9]{2}:[0-9]{2}`)
	controlReplacer = strings.NewReplacer("\r\n", "", "\n", "", "\r", "", "\t", "", "\v", "", "\f", "")
)

// Clean normalizes one cell for export and comparison: surrounding white
// space is trimmed, full-width letters and digits and half-width kana are
// folded with NFKC, over-long decimals are rounded to single precision,
// spreadsheet datetimes become YYYYMMDD and in-cell line breaks and tabs
// are removed.
func Clean(cell string) string {
	s := strings.TrimSpace(cell)
	s = norm.NFKC.String(s)
	s = roundFloat(s)
	s = datetimeToDate(s)
	return controlReplacer.Replace(s)
}

// roundFloat rewrites a decimal string with the shortest representation
// that survives a round trip through float32, so spreadsheet noise such as
// 12.300000190734863 reads 12.3 again. Integers and non-numbers are
// returned unchanged.
func roundFloat(s string) string {
	if integerPattern.MatchString(s) || !decimalPattern.MatchString(s) {
		return s
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return s
	}
	out := strconv.FormatFloat(v, 'f', -1, 32)
	if !strings.ContainsAny(out, ".") {
		out += ".0"
	}
	return out
}

func datetimeToDate(s string) string {
	m := datetimePattern.FindString(s)
	if m == "" {
		return s
	}
	t, err := time.Parse("2006-01-02 15:04:05", strings.Replace(m, "\t", " ", 1))
	if err != nil {
		return s
	}
	return t.Format("20060102")
}

// CleanRows applies Clean to every cell, returning new rows.
func CleanRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cleaned := make([]string, len(row))
		for j, c := range row {
			cleaned[j] = Clean(c)
		}
		out[i] = cleaned
	}
	return out
}

// CleanRecord returns a copy of rec with every data cell cleaned. Column
// names and comments are kept as they are.
func CleanRecord(rec *record.Record) (*record.Record, error) {
	_, rows := rec.Data()
	return rec.WithRows(CleanRows(rows))
}
