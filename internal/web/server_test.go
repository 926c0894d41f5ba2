package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/config"
	"github.com/JonMunkholm/monisenforest/internal/core"
	_ "github.com/JonMunkholm/monisenforest/internal/core/kinds"
	"github.com/JonMunkholm/monisenforest/internal/ingest"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

const treeCSV = "#,PLOT ID,,TM-DB1\n" +
	"tag_no,indv_no,spc_japan,gbh05,gbh10,s_date05,s_date10\n" +
	"1,1,ブナ,20,21,20050610,20100612\n" +
	"2,2,ブナ,20,21,20050610,20100612\n" +
	"2,3,ブナ,20,21,20050610,20100612\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 30 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20},
		Rate:   config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100, CheckLimit: 20},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc, err := core.NewService(core.ServiceOptions{
		Config:  check.DefaultConfig(),
		Metrics: core.NewMetrics(reg),
	})
	require.NoError(t, err)

	s := NewServer(svc, cfg, reg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

// uploadRequest builds a multipart POST with the file and form fields.
func uploadRequest(t *testing.T, target, fileName, data string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"max_concurrent"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListKinds(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/kinds", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var kinds []core.KindSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kinds))
	require.Len(t, kinds, 3)
	assert.Equal(t, record.KindTree, kinds[0].Kind)
}

func TestTemplate(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/template/tree", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\ufeff"), "template starts with a BOM")
	assert.Contains(t, rec.Body.String(), "tag_no")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tree_template.csv")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/template/fungi", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SCH003", decodeError(t, rec).Code)
}

func TestCheck_JSON(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/check", "tree.csv", treeCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report core.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "TM-DB1", report.PlotID)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, check.RuleTagDup, report.Findings[0].Rule)
	assert.Equal(t, "1", rec.Header().Get("X-Findings-Count"))
	assert.Equal(t, report.ID, rec.Header().Get("X-Report-ID"))
}

func TestCheck_Options(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/check", "tree.csv", treeCSV, map[string]string{
		"disable": "tag_dup, indv_null",
		"plot_id": "AS-DB1",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report core.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "AS-DB1", report.PlotID)
	assert.Empty(t, report.Findings)
	assert.NotContains(t, report.Rules, check.RuleTagDup)
}

func TestCheck_XLSX(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/check?format=xlsx", "TM-DB1.csv", treeCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename*=UTF-8''%E7%A2%BA%E8%AA%8D%E4%BA%8B%E9%A0%85TM-DB1.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 2, "header and one finding")
}

func TestCheck_CSVByAccept(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := uploadRequest(t, "/api/check", "tree.csv", treeCSV, nil)
	req.Header.Set("Accept", "text/csv")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "tag_dup")
}

func TestCheck_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		fileName   string
		data       string
		fields     map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no file",
			target:     "/api/check",
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name:       "missing column",
			target:     "/api/check",
			fileName:   "tree.csv",
			data:       "tag_no,spc_japan,gbh05\n1,ブナ,20\n",
			fields:     map[string]string{"kind": "tree", "plot_id": "TM-DB1"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SCH001",
		},
		{
			name:       "unknown rule",
			target:     "/api/check",
			fileName:   "tree.csv",
			data:       treeCSV,
			fields:     map[string]string{"enable": "no_such_rule"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "CFG001",
		},
		{
			name:       "unknown kind",
			target:     "/api/check",
			fileName:   "tree.csv",
			data:       treeCSV,
			fields:     map[string]string{"kind": "fungi"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "SCH003",
		},
		{
			name:       "unsupported format",
			target:     "/api/check",
			fileName:   "tree.ods",
			data:       treeCSV,
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "FILE003",
		},
		{
			name:       "header only",
			target:     "/api/check",
			fileName:   "tree.csv",
			data:       "tag_no,indv_no,spc_japan,gbh05\n",
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name:       "bad output format",
			target:     "/api/check?format=pdf",
			fileName:   "tree.csv",
			data:       treeCSV,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR000",
		},
	}

	s := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, uploadRequest(t, tt.target, tt.fileName, tt.data, tt.fields))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestCheck_SchemaErrorDetails(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/check", "tree.csv", "spc_japan,gbh05\nブナ,20\n",
		map[string]string{"kind": "tree", "plot_id": "TM-DB1"}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"tag_no", "indv_no"}, decodeError(t, rec).Details)
}

func TestCheck_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	s := newTestServer(t, cfg)

	rec := serve(s, uploadRequest(t, "/api/check", "tree.csv", treeCSV, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/preview", "tree.csv", treeCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, record.KindTree, preview.Kind)
	assert.Equal(t, 3, preview.Rows)
	assert.Equal(t, []int{2005, 2010}, preview.Periods)
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}
	s := newTestServer(t, cfg)

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{name: "missing", key: "", wantStatus: http.StatusUnauthorized},
		{name: "invalid", key: "nope", wantStatus: http.StatusForbidden},
		{name: "valid", key: "k2", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/kinds", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			assert.Equal(t, tt.wantStatus, serve(s, req).Code)
		})
	}

	// Health stays open for probes.
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, CheckLimit: 2}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	assert.Equal(t, http.StatusOK, serve(s, req).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/check", "tree.csv", treeCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `monisenforest_checks_total{kind="tree",outcome="ok"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&check.SchemaError{Kind: record.KindTree, Missing: []string{"tag_no"}}, http.StatusUnprocessableEntity},
		{&check.ConfigError{Problems: []string{"x"}}, http.StatusInternalServerError},
		{fmt.Errorf("read: %w", ingest.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{core.ErrTooManyChecks, http.StatusServiceUnavailable},
		{fmt.Errorf("check TM-DB1: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{ingest.ErrEmpty, http.StatusBadRequest},
		{errors.New("unknown rule \"x\""), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestReportFileName(t *testing.T) {
	assert.Equal(t, "確認事項TM-DB1.xlsx", reportFileName("uploads/TM-DB1.csv", ".xlsx"))
	assert.Equal(t, `attachment; filename="a_b.csv"; filename*=UTF-8''a%E3%83%BBb.csv`, attachment("a・b.csv"))
}
