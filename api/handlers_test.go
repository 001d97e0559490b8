/*
handlers_test.go - HTTP tests for the job API

Tests for:
- Upload validation (file type, report month, parameters)
- Maturity and poliza jobs end to end: upload, poll, download
- Download guards (unknown, unfinished, wrong type, missing output)
- Company code extraction
- Health and cleanup
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ctr-mapper/api"
	"github.com/warp/ctr-mapper/jobs"
	"github.com/warp/ctr-mapper/maturity"
	"github.com/xuri/excelize/v2"
	"golang.org/x/time/rate"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testServer struct {
	router *chi.Mux
	h      *api.Handler
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	store := jobs.NewStore(time.Hour, time.Hour, nil)
	queue := jobs.NewQueue(1, 8, store)
	files := api.NewCleanupScheduler(dir, time.Hour, zerolog.Nop())
	h := api.NewHandler(store, queue, files, dir, 10<<20, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Start(ctx, h.Process))
	t.Cleanup(func() {
		_ = queue.Stop(context.Background())
		cancel()
	})

	return &testServer{router: api.NewRouter(h, []string{"http://localhost:5173"}), h: h, dir: dir}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

// waitForJob polls /status until the job is terminal.
func (s *testServer) waitForJob(t *testing.T, id string) api.JobStatusDTO {
	t.Helper()
	var status api.JobStatusDTO
	require.Eventually(t, func() bool {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/status/"+id, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		status = api.JobStatusDTO{}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == string(jobs.StatusCompleted) || status.Status == string(jobs.StatusFailed)
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// workbook builds an .xlsx with rows starting at firstRow.
func workbook(t *testing.T, firstRow int, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func scheduleWorkbook(t *testing.T) []byte {
	return workbook(t, 8,
		[]any{"Contract ID", "Activation Group ID", "Contract Name", "Company Code", "Business Unit",
			"Activation Group Status", "Activation Date", "End Date", "Contract Currency", "Period End Date",
			"Payment", "Interest Paid", "ST Principal Liability Closing Balance", "LT Principal Liability Closing Balance",
			"Asset Class"},
		[]any{"CT-1", "AG-1", "Warehouse", 1000, "BU", "Active", "2023-01-01", "2027-12-31", "USD", "2022-12-31", 500, -10, 400, 1600, "Buildings"},
		[]any{"CT-1", "AG-1", "Warehouse", 1000, "BU", "Active", "2023-01-01", "2027-12-31", "USD", "2023-06-30", 1000, -50, 0, 0, "Buildings"},
		[]any{"CT-1", "AG-1", "Warehouse", 1000, "BU", "Active", "2023-01-01", "2027-12-31", "USD", "2024-01-31", 2000, -25, 0, 0, "Buildings"},
	)
}

func ledgerWorkbook(t *testing.T) []byte {
	return workbook(t, 1,
		[]any{"Company Code", "Translation Type", "Fiscal Year", "Fiscal Period", "Unit", "Contract Name",
			"Vendor", "GL Account", "Contract Currency", "Amount in Contract Currency"},
		[]any{"1000", "Depreciation", 2024, 3, "U-1", "Lease A", "Acme", "10-20-30-40-50-60-70-80", "USD", 1000},
		[]any{"1000", "Depreciation", 2024, 3, "U-1", "Lease A", "Acme", "10-20-30-40-50-60-70-81", "USD", -1000},
		[]any{"2000", "Interest", 2024, 3, "U-2", "Lease B", "Acme", "10-20-30-40-50-60-70-82", "MXN", 300},
	)
}

// =============================================================================
// UPLOAD VALIDATION
// =============================================================================

func TestUpload_RejectsNonWorkbook(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/upload", "/api/upload-maturity-analysis", "/api/extract-company-codes"} {
		rec := s.upload(t, path, "ledger.csv", []byte("a,b\n"), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, decode[api.ErrorResponse](t, rec).Error, ".xlsx", path)
	}
}

func TestUpload_RequiresFile(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("report_month", "12"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload-maturity-analysis", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := s.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File is required", decode[api.ErrorResponse](t, rec).Error)
}

func TestUploadMaturity_RejectsBadMonth(t *testing.T) {
	// GIVEN: A maturity upload for month 13
	// WHEN: Posting it
	// THEN: 400 before any job is created

	s := newTestServer(t)
	rec := s.upload(t, "/api/upload-maturity-analysis", "schedule.xlsx", scheduleWorkbook(t),
		map[string]string{"report_year": "2022", "report_month": "13"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Report month must be between 1 and 12", decode[api.ErrorResponse](t, rec).Error)
	assert.Equal(t, 0, s.h.Jobs.Count())
}

func TestUploadMaturity_RequiresReportDate(t *testing.T) {
	// GIVEN: Maturity uploads missing the report year, the month, or both
	// WHEN: Posting them
	// THEN: 400 and no job is queued for whatever month the clock shows

	s := newTestServer(t)
	cases := map[string]map[string]string{
		"no year":  {"report_month": "12"},
		"no month": {"report_year": "2022"},
		"neither":  {},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.upload(t, "/api/upload-maturity-analysis", "schedule.xlsx", scheduleWorkbook(t), fields)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Report year and month are required", decode[api.ErrorResponse](t, rec).Error)
		})
	}
	assert.Equal(t, 0, s.h.Jobs.Count())
}

func TestUploadMaturity_RejectsBadParameters(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]map[string]string{
		"non-numeric year":  {"report_year": "twenty", "report_month": "12"},
		"negative rate":     {"report_year": "2022", "report_month": "12", "exchange_rate": "-1"},
		"bad rate JSON":     {"report_year": "2022", "report_month": "12", "rates": "{EUR"},
		"data above header": {"report_year": "2022", "report_month": "12", "input_header_start": "8", "input_data_start": "3"},
		"too many buckets":  {"report_year": "2022", "report_month": "12", "bucket_years": "99"},
		"zero header row":   {"report_year": "2022", "report_month": "12", "input_header_start": "0"},
		"zero buckets":      {"report_year": "2022", "report_month": "12", "bucket_years": "0"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.upload(t, "/api/upload-maturity-analysis", "schedule.xlsx", scheduleWorkbook(t), fields)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUploadPoliza_RejectsZeroHeaderRow(t *testing.T) {
	s := newTestServer(t)
	rec := s.upload(t, "/api/upload", "ledger.xlsx", ledgerWorkbook(t), map[string]string{"input_header_start": "0"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid parameters", decode[api.ErrorResponse](t, rec).Error)
	assert.Equal(t, 0, s.h.Jobs.Count())
}

func TestUpload_RateLimited(t *testing.T) {
	// GIVEN: A limiter that admits one upload and refills once an hour
	// WHEN: Posting two uploads back to back
	// THEN: The second is refused with 429 and status polling is unaffected

	s := newTestServer(t)
	s.h.UploadLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	first := s.upload(t, "/api/upload", "ledger.csv", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, first.Code, "admitted, then rejected for its type")

	second := s.upload(t, "/api/upload", "ledger.csv", []byte("x"), nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	status := s.do(httptest.NewRequest(http.MethodGet, "/api/status/nope", nil))
	assert.Equal(t, http.StatusNotFound, status.Code)
}

// =============================================================================
// JOBS END TO END
// =============================================================================

func TestMaturityJob_EndToEnd(t *testing.T) {
	// GIVEN: A schedule export with one contract: a report-month row and two future rows
	// WHEN: Uploading it, polling until done and downloading
	// THEN: The job completes with the run summary and the workbook has both sheets

	s := newTestServer(t)
	rec := s.upload(t, "/api/upload-maturity-analysis", "schedule.xlsx", scheduleWorkbook(t),
		map[string]string{"report_year": "2022", "report_month": "12", "target_currency": "usd"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.UploadResponse](t, rec)
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.JobID)

	status := s.waitForJob(t, resp.JobID)
	require.Equal(t, string(jobs.StatusCompleted), status.Status, status.Error)
	assert.Equal(t, "maturity", status.Type)
	assert.Equal(t, "schedule.xlsx", status.OriginalName)
	assert.NotNil(t, status.CompletedAt)

	result, ok := status.Result.(map[string]any)
	require.True(t, ok, "result is the run summary")
	assert.Equal(t, float64(3), result["input_rows"])
	assert.Equal(t, float64(1), result["output_rows"])
	assert.Equal(t, "2022-12", result["report_date"])

	dl := s.do(httptest.NewRequest(http.MethodGet, "/api/download-maturity-analysis/"+resp.JobID, nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "maturity_analysis_")

	f, err := excelize.OpenReader(bytes.NewReader(dl.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{maturity.SummarySheetName, maturity.DetailSheetName}, f.GetSheetList())

	balances, err := f.GetCellValue(maturity.DetailSheetName, "AH2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "2000", balances, "ST+LT at the report month")
}

func TestMaturityJob_FailureIsRecorded(t *testing.T) {
	// GIVEN: A schedule whose rows all belong to another company
	// WHEN: Filtering on a company code that matches nothing
	// THEN: The job fails with the filter error and there is nothing to download

	s := newTestServer(t)
	rec := s.upload(t, "/api/upload-maturity-analysis", "schedule.xlsx", scheduleWorkbook(t),
		map[string]string{"report_year": "2022", "report_month": "12", "company_code": "9999"})
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[api.UploadResponse](t, rec).JobID

	status := s.waitForJob(t, id)
	assert.Equal(t, string(jobs.StatusFailed), status.Status)
	assert.Contains(t, status.Error, "9999")

	dl := s.do(httptest.NewRequest(http.MethodGet, "/api/download-maturity-analysis/"+id, nil))
	assert.Equal(t, http.StatusBadRequest, dl.Code)
}

func TestPolizaJob_EndToEnd(t *testing.T) {
	// GIVEN: A GL export with the header on row 1 and two companies
	// WHEN: Uploading it filtered on company 1000
	// THEN: Only the two 1000 rows are mapped into one journal sheet

	s := newTestServer(t)
	rec := s.upload(t, "/api/upload", "ledger.xlsx", ledgerWorkbook(t), map[string]string{
		"input_header_start": "1",
		"input_data_start":   "2",
		"company_code":       "1000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[api.UploadResponse](t, rec).JobID

	status := s.waitForJob(t, id)
	require.Equal(t, string(jobs.StatusCompleted), status.Status, status.Error)
	result := status.Result.(map[string]any)
	assert.Equal(t, float64(3), result["input_rows"])
	assert.Equal(t, float64(2), result["matched_rows"])
	assert.Equal(t, "1000", result["filtered_by_company_code"])

	dl := s.do(httptest.NewRequest(http.MethodGet, "/api/download/"+id, nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "poliza_ledger_")

	f, err := excelize.OpenReader(bytes.NewReader(dl.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 1)
}

// =============================================================================
// STATUS AND DOWNLOAD GUARDS
// =============================================================================

func TestStatus_UnknownJob(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/status/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decode[api.ErrorResponse](t, rec).Error)
}

func TestDownload_Guards(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.h.Jobs.Save(&jobs.Job{ID: "pending", Type: jobs.TypePoliza, Status: jobs.StatusPending}))
	require.NoError(t, s.h.Jobs.Save(&jobs.Job{
		ID: "gone", Type: jobs.TypePoliza, Status: jobs.StatusCompleted,
		OutputPath: filepath.Join(s.dir, "missing.xlsx"),
	}))
	require.NoError(t, s.h.Jobs.Save(&jobs.Job{ID: "mat", Type: jobs.TypeMaturity, Status: jobs.StatusCompleted}))

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/api/download/unknown", http.StatusNotFound, "Job not found"},
		{"/api/download/pending", http.StatusBadRequest, "Job not completed yet"},
		{"/api/download/gone", http.StatusNotFound, "Output file not found"},
		{"/api/download/mat", http.StatusBadRequest, "Job is not a poliza job"},
	}
	for _, tc := range cases {
		rec := s.do(httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, tc.path)
		assert.Equal(t, tc.message, decode[api.ErrorResponse](t, rec).Error, tc.path)
	}
}

// =============================================================================
// UTILITY ENDPOINTS
// =============================================================================

func TestExtractCompanyCodes(t *testing.T) {
	// GIVEN: A ledger with repeated and blank company codes
	// WHEN: Extracting with the header on row 1
	// THEN: Sorted distinct codes come back and the upload is not kept

	s := newTestServer(t)
	content := workbook(t, 1,
		[]any{"Unit", "Company Code"},
		[]any{"U-1", 2000},
		[]any{"U-2", 1000},
		[]any{"U-3", 1000},
		[]any{"U-4", ""},
	)
	rec := s.upload(t, "/api/extract-company-codes", "ledger.xlsx", content, map[string]string{"input_header_start": "1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.CompanyCodesResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"1000", "2000"}, resp.CompanyCodes)
	assert.Equal(t, 2, resp.TotalCount)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractCompanyCodes_MissingColumn(t *testing.T) {
	s := newTestServer(t)
	content := workbook(t, 1, []any{"Unit", "Vendor"}, []any{"U-1", "Acme"})

	rec := s.upload(t, "/api/extract-company-codes", "ledger.xlsx", content, map[string]string{"input_header_start": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Company Code column not found in the uploaded file", decode[api.ErrorResponse](t, rec).Error)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.h.Jobs.Save(&jobs.Job{ID: "a", Status: jobs.StatusProcessing}))
	require.NoError(t, s.h.Jobs.Save(&jobs.Job{ID: "b", Status: jobs.StatusCompleted}))

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.ActiveJobs)
	assert.Equal(t, 2, resp.StoredJobs)
}

func TestCleanup_RemovesOldFiles(t *testing.T) {
	// GIVEN: One upload older than the retention window and one fresh
	// WHEN: Calling DELETE /cleanup
	// THEN: Only the old file is removed

	s := newTestServer(t)
	old := filepath.Join(s.dir, "old_input.xlsx")
	fresh := filepath.Join(s.dir, "fresh_input.xlsx")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	rec := s.do(httptest.NewRequest(http.MethodDelete, "/api/cleanup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.CleanupResponse](t, rec)
	assert.Equal(t, 1, resp.RemovedFiles)

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestCleanupScheduler_RunsOnStart(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.xlsx")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	cs := api.NewCleanupScheduler(dir, time.Hour, zerolog.Nop())
	cs.Start()
	defer cs.Stop()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(old)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCleanupScheduler_Disabled(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.xlsx")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	cs := api.NewCleanupScheduler(dir, time.Hour, zerolog.Nop())
	cs.Enabled = false
	cs.Start()
	cs.Stop()

	assert.FileExists(t, old)
}

func TestRemoveJobFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.xlsx")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0o644))

	api.RemoveJobFiles(zerolog.Nop(), in, filepath.Join(dir, "never-written.xlsx"))
	assert.NoFileExists(t, in)
}
