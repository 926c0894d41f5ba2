package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/monisenforest/internal/ingest"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// RecordOptions control WriteRecordCSV.
type RecordOptions struct {
	KeepComments bool // write the comment rows above the header
	Clean        bool // apply ingest.Clean to data cells
	BOM          bool // prefix a UTF-8 byte order mark for Excel
}

// WriteRecordCSV writes rec as CSV. Comment rows and data rows are padded
// to a common width.
func WriteRecordCSV(w io.Writer, rec *record.Record, opts RecordOptions) error {
	if opts.BOM {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}

	columns, rows := rec.Data()
	if opts.Clean {
		rows = ingest.CleanRows(rows)
	}

	var out [][]string
	if opts.KeepComments {
		out = append(out, rec.Comments()...)
	}
	out = append(out, columns)
	out = append(out, rows...)

	width := 0
	for _, row := range out {
		if len(row) > width {
			width = len(row)
		}
	}

	cw := csv.NewWriter(w)
	for _, row := range out {
		padded := make([]string, width)
		copy(padded, row)
		if err := cw.Write(padded); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
