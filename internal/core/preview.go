package core

import (
	"errors"
	"io"
	"time"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// previewSampleRows is the number of data rows returned by Preview.
const previewSampleRows = 5

// PreviewResponse describes a data file without running any rule, so field
// staff can see how the file was understood before checking it.
type PreviewResponse struct {
	FileName string            `json:"fileName"`
	PlotID   string            `json:"plotId"`
	Kind     record.Kind       `json:"kind"`
	Rows     int               `json:"rows"`
	Columns  []string          `json:"columns"`
	Metadata map[string]string `json:"metadata,omitempty"`

	// Missing lists required columns absent from the header.
	Missing []string `json:"missing,omitempty"`
	// Unknown lists header columns no column spec describes.
	Unknown []string `json:"unknown,omitempty"`
	// Periods lists the census years derived from the gbh columns.
	Periods []int `json:"periods,omitempty"`

	Samples          [][]string `json:"samples"`
	ProcessingTimeMs int64      `json:"processingTimeMs"`
}

// Preview reads the file called name and reports its header analysis.
func (s *Service) Preview(name string, r io.Reader, opts CheckOptions) (*PreviewResponse, error) {
	start := time.Now()

	rec, err := s.Read(name, r, opts)
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{
		FileName: name,
		PlotID:   rec.PlotID(),
		Kind:     rec.Kind(),
		Rows:     rec.Len(),
		Columns:  rec.Columns(),
		Metadata: rec.Metadata(),
	}

	n := min(rec.Len(), previewSampleRows)
	resp.Samples = make([][]string, n)
	for i := 0; i < n; i++ {
		resp.Samples[i] = rec.Row(i)
	}

	if def, ok := Get(resp.Kind); ok {
		if _, err := ValidateHeaders(resp.Kind, resp.Columns, def.Columns); err != nil {
			var se *check.SchemaError
			if !errors.As(err, &se) {
				return nil, err
			}
			resp.Missing = se.Missing
		}
		resp.Unknown = UnknownColumns(resp.Columns, def.Columns)
	}

	if resp.Kind == record.KindTree {
		if periods, err := record.Periods(resp.Columns, "gbh"); err == nil {
			for _, p := range periods {
				resp.Periods = append(resp.Periods, p.Year)
			}
		}
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}
