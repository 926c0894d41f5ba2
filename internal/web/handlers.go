package web

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/core"
	"github.com/JonMunkholm/monisenforest/internal/export"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// multipartOverhead is added to the file size limit for form fields and
// part headers.
const multipartOverhead = 1 << 20

// Output formats of the check endpoint.
const (
	formatJSON = "json"
	formatXLSX = "xlsx"
	formatCSV  = "csv"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

var errInvalidFormat = errors.New("invalid output format")

// upload is one parsed multipart request.
type upload struct {
	name string
	file multipart.File
	opts core.CheckOptions
}

// handleHealth reports liveness and the check limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":  "ok",
		"limiter": s.service.Limiter().Status(),
	})
}

// handleListKinds returns the registered data kinds and their rules.
func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.service.ListKinds())
}

// handleTemplate serves the header row of a kind as a CSV file that opens
// cleanly in Excel.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	kind, err := record.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondErrorStatus(w, r, err, http.StatusNotFound)
		return
	}
	header, err := s.service.Template(kind)
	if err != nil {
		respondErrorStatus(w, r, err, http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		respondError(w, r, err)
		return
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeCSV)
	w.Header().Set("Content-Disposition", attachment(string(kind)+"_template.csv"))
	_, _ = w.Write(buf.Bytes())
}

// handlePreview reads an uploaded file and returns its header analysis
// without running any rule.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	up, err := s.parseUpload(w, r)
	if err != nil {
		respondUploadError(w, r, err)
		return
	}
	defer up.file.Close()

	preview, err := s.service.Preview(up.name, up.file, up.opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, preview)
}

// handleCheck checks an uploaded file and returns the report as JSON or the
// findings as an XLSX or CSV download.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	format, err := outputFormat(r)
	if err != nil {
		respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	up, err := s.parseUpload(w, r)
	if err != nil {
		respondUploadError(w, r, err)
		return
	}
	defer up.file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.CheckFile(ctx, up.name, up.file, up.opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("X-Report-ID", report.ID)
	w.Header().Set("X-Findings-Count", strconv.Itoa(len(report.Findings)))

	switch format {
	case formatXLSX:
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, report.Findings, report.Kind); err != nil {
			respondError(w, r, fmt.Errorf("write report: %w", err))
			return
		}
		w.Header().Set("Content-Type", contentTypeXLSX)
		w.Header().Set("Content-Disposition", attachment(reportFileName(up.name, ".xlsx")))
		_, _ = w.Write(buf.Bytes())
	case formatCSV:
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, report.Findings, report.Kind); err != nil {
			respondError(w, r, fmt.Errorf("write report: %w", err))
			return
		}
		w.Header().Set("Content-Type", contentTypeCSV)
		w.Header().Set("Content-Disposition", attachment(reportFileName(up.name, ".csv")))
		_, _ = w.Write(buf.Bytes())
	default:
		render.JSON(w, r, report)
	}
}

// parseUpload reads the multipart form: the data file in "file" and the
// check options kind, plot_id, thorough, enable and disable.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, errNoFile
		}
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoFile
		}
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	opts, err := checkOptions(r)
	if err != nil {
		file.Close()
		return nil, err
	}
	if header.Size > s.cfg.Upload.MaxFileSize {
		file.Close()
		return nil, &http.MaxBytesError{Limit: s.cfg.Upload.MaxFileSize}
	}

	return &upload{name: header.Filename, file: file, opts: opts}, nil
}

// respondUploadError answers a request whose form could not be parsed.
// Everything but an oversized body is the client's fault.
func respondUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		respondErrorStatus(w, r, err, http.StatusRequestEntityTooLarge)
	default:
		respondErrorStatus(w, r, err, http.StatusBadRequest)
	}
}

// checkOptions reads the check options from the parsed form.
func checkOptions(r *http.Request) (core.CheckOptions, error) {
	var opts core.CheckOptions

	if v := strings.TrimSpace(r.FormValue("kind")); v != "" {
		kind, err := record.ParseKind(v)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}
	opts.PlotID = strings.TrimSpace(r.FormValue("plot_id"))

	if v := strings.TrimSpace(r.FormValue("thorough")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid form value thorough=%q: %w", v, err)
		}
		opts.Thorough = b
	}

	opts.Enable = ruleList(r.FormValue("enable"))
	opts.Disable = ruleList(r.FormValue("disable"))
	return opts, nil
}

// ruleList splits a comma-separated list of rule ids. Unknown ids are
// rejected later by the service.
func ruleList(v string) []check.RuleID {
	var ids []check.RuleID
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, check.RuleID(part))
		}
	}
	return ids
}

// outputFormat picks the response format from the format query parameter,
// falling back to the Accept header.
func outputFormat(r *http.Request) (string, error) {
	switch f := strings.ToLower(r.URL.Query().Get("format")); f {
	case formatJSON, formatXLSX, formatCSV:
		return f, nil
	case "":
	default:
		return "", fmt.Errorf("%w %q (want json, xlsx or csv)", errInvalidFormat, f)
	}

	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "spreadsheetml"):
		return formatXLSX, nil
	case strings.Contains(accept, "text/csv"):
		return formatCSV, nil
	default:
		return formatJSON, nil
	}
}

// reportFileName names the findings file of an uploaded data file.
func reportFileName(name, ext string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return export.ReportPrefix + stem + ext
}

// attachment builds a Content-Disposition value with an ASCII fallback and
// the RFC 5987 UTF-8 file name.
func attachment(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(name))
}
