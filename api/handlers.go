/*
handlers.go - HTTP request handlers

PURPOSE:
  Implements the upload/status/download API around the two report engines.
  Uploads are saved to the upload directory, turned into a job and queued;
  the browser polls /status and downloads the workbook once the job has
  completed.

HANDLER ORGANIZATION:
  - Upload handlers:   UploadPoliza, UploadMaturity
  - Job handlers:      GetStatus, DownloadPoliza, DownloadMaturity
  - Utility handlers:  ExtractCompanyCodes, Health, Cleanup
  - Job execution:     Process (see process.go)

FORM FIELDS:
  Both uploads take "file" (.xlsx, or legacy .xls) plus optional "input_header_start",
  "input_data_start", "company_code" and "rates" (JSON object of currency
  to rate). The maturity upload adds "report_year", "report_month",
  "exchange_rate", "target_currency", "bucket_years" and "statuses"
  (comma separated). Form values are mapped onto the factory JSON types so
  the API validates runs exactly like the CLI does.

ERROR HANDLING:
  - 400 Bad Request:  Bad form values, wrong file type, unfinished job
  - 404 Not Found:    Unknown job or missing output file
  - 413 Too Large:    Upload over the configured limit
  - 429 Too Many:     Upload rate limit exceeded
  - 503 Unavailable:  Job queue full or closed
  - 500 Internal:     Anything else

SEE ALSO:
  - dto.go: Request/response types
  - server.go: Route definitions
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/factory"
	"github.com/warp/ctr-mapper/jobs"
	"github.com/warp/ctr-mapper/logger"
	"github.com/warp/ctr-mapper/poliza"
	"github.com/warp/ctr-mapper/store/xlsx"
	"github.com/warp/ctr-mapper/table"
	"golang.org/x/time/rate"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// multipart parts above this size spill to temporary files
const maxFormMemory = 32 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Jobs          *jobs.Store
	Queue         *jobs.Queue
	ConfigFactory *factory.ConfigFactory
	Files         *CleanupScheduler

	UploadDir      string
	MaxUploadBytes int64
	UploadLimiter  *rate.Limiter

	log zerolog.Logger
}

// NewHandler creates a handler. files may be nil, in which case /cleanup
// only purges expired jobs.
func NewHandler(store *jobs.Store, queue *jobs.Queue, files *CleanupScheduler, uploadDir string, maxUploadBytes int64, log zerolog.Logger) *Handler {
	return &Handler{
		Jobs:           store,
		Queue:          queue,
		ConfigFactory:  factory.NewConfigFactory(),
		Files:          files,
		UploadDir:      uploadDir,
		MaxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// =============================================================================
// UPLOAD HANDLERS
// =============================================================================

// UploadPoliza queues a poliza run over the uploaded GL export.
func (h *Handler) UploadPoliza(w http.ResponseWriter, r *http.Request) {
	if !h.parseUpload(w, r) {
		return
	}

	pj := factory.PolizaJSON{CompanyCode: r.FormValue("company_code")}
	var err error
	if pj.HeaderRow, err = formOptionalInt(r, "input_header_start"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form value", err)
		return
	}
	if pj.DataRow, err = formOptionalInt(r, "input_data_start"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form value", err)
		return
	}
	if pj.Rates, err = formRates(r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form value", err)
		return
	}
	params, err := h.ConfigFactory.PolizaFromJSON(pj)
	if err != nil {
		writeError(w, statusFor(err), "Invalid parameters", err)
		return
	}

	h.submit(w, r, jobs.TypePoliza, params, "poliza_ledger")
}

// UploadMaturity queues a maturity analysis over the uploaded schedule.
func (h *Handler) UploadMaturity(w http.ResponseWriter, r *http.Request) {
	if !h.parseUpload(w, r) {
		return
	}

	mj := factory.MaturityJSON{
		TargetCurrency: r.FormValue("target_currency"),
		CompanyCode:    r.FormValue("company_code"),
		Statuses:       formList(r, "statuses"),
	}
	ints := []struct {
		name string
		dst  **int
	}{
		{"report_year", &mj.ReportYear},
		{"report_month", &mj.ReportMonth},
		{"input_header_start", &mj.HeaderRow},
		{"input_data_start", &mj.DataRow},
		{"bucket_years", &mj.BucketYears},
	}
	for _, i := range ints {
		v, err := formOptionalInt(r, i.name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form value", err)
			return
		}
		*i.dst = v
	}
	if mj.ReportYear == nil || mj.ReportMonth == nil {
		writeError(w, http.StatusBadRequest, "Report year and month are required", nil)
		return
	}
	if *mj.ReportMonth < 1 || *mj.ReportMonth > 12 {
		writeError(w, http.StatusBadRequest, "Report month must be between 1 and 12", nil)
		return
	}

	if raw := strings.TrimSpace(r.FormValue("exchange_rate")); raw != "" {
		fallback, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form value", fmt.Errorf("exchange_rate: %w", err))
			return
		}
		mj.ExchangeRate = &fallback
	}
	var err error
	if mj.Rates, err = formRates(r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form value", err)
		return
	}

	params, err := h.ConfigFactory.MaturityFromJSON(mj)
	if err != nil {
		writeError(w, statusFor(err), "Invalid parameters", err)
		return
	}

	h.submit(w, r, jobs.TypeMaturity, params, "maturity_analysis")
}

// parseUpload reads the multipart form and checks the file part. It writes
// the error response itself and reports whether the request can continue.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return false
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required", err)
		return false
	}
	if !isWorkbook(header.Filename) {
		writeError(w, http.StatusBadRequest, "Only Excel files (.xlsx, .xls) are allowed", nil)
		return false
	}
	return true
}

// submit saves the upload and queues the job.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, typ jobs.Type, params any, outputName string) {
	log := logger.FromContext(r.Context())
	id := uuid.New().String()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required", err)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	inputPath := filepath.Join(h.UploadDir, fmt.Sprintf("%s_input_%s", id, name))
	if err := saveFile(inputPath, file); err != nil {
		writeError(w, http.StatusInternalServerError, "Upload failed", err)
		return
	}

	job := &jobs.Job{
		ID:           id,
		Type:         typ,
		OriginalName: name,
		InputPath:    inputPath,
		OutputPath:   filepath.Join(h.UploadDir, fmt.Sprintf("%s_output_%s.xlsx", id, outputName)),
		Params:       params,
	}
	if err := h.Queue.Submit(r.Context(), job); err != nil {
		_ = os.Remove(inputPath)
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
			writeError(w, http.StatusServiceUnavailable, "Server busy, try again later", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to queue job", err)
		return
	}

	log.Info().Str("job_id", id).Str("type", string(typ)).Str("file", name).Msg("job queued")
	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "File uploaded successfully. Processing started.",
		JobID:   id,
	})
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// GetStatus returns the current state of a job.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := h.job(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toJobStatusDTO(job))
}

// DownloadPoliza streams the poliza workbook of a completed job.
func (h *Handler) DownloadPoliza(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, jobs.TypePoliza, "poliza_ledger")
}

// DownloadMaturity streams the maturity workbook of a completed job.
func (h *Handler) DownloadMaturity(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, jobs.TypeMaturity, "maturity_analysis")
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, typ jobs.Type, prefix string) {
	job, ok := h.job(w, r)
	if !ok {
		return
	}
	if job.Type != typ {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Job is not a %s job", typ), nil)
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeError(w, http.StatusBadRequest, "Job not completed yet", nil)
		return
	}

	f, err := os.Open(job.OutputPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "Output file not found", nil)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read output file", err)
		return
	}

	filename := fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

// job loads the job named in the URL, answering 404 itself when unknown.
func (h *Handler) job(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	job, err := h.Jobs.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return nil, false
	}
	return job, true
}

// =============================================================================
// UTILITY HANDLERS
// =============================================================================

// ExtractCompanyCodes lists the distinct Company Code values of an upload so
// the frontend can offer them as a filter. The file is not kept.
func (h *Handler) ExtractCompanyCodes(w http.ResponseWriter, r *http.Request) {
	if !h.parseUpload(w, r) {
		return
	}
	headerRow, err := formInt(r, "input_header_start", poliza.DefaultLayout.HeaderRow)
	if err != nil || headerRow < 1 {
		writeError(w, http.StatusBadRequest, "Invalid form value", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required", err)
		return
	}
	defer file.Close()

	path := filepath.Join(h.UploadDir, fmt.Sprintf("%s_temp_%s", uuid.New().String(), filepath.Base(header.Filename)))
	if err := saveFile(path, file); err != nil {
		writeError(w, http.StatusInternalServerError, "Upload failed", err)
		return
	}
	defer os.Remove(path)

	codes, err := table.DistinctValues(xlsx.SourceFor(path), headerRow, table.CompanyCodeColumn)
	if err != nil {
		if errors.Is(err, table.ErrMissingColumns) {
			writeError(w, http.StatusBadRequest, "Company Code column not found in the uploaded file", nil)
			return
		}
		writeError(w, statusFor(err), "Failed to extract company codes", err)
		return
	}

	writeJSON(w, http.StatusOK, CompanyCodesResponse{
		Success:      true,
		CompanyCodes: codes,
		TotalCount:   len(codes),
	})
}

// Health reports liveness and how many jobs are still running.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	all := h.Jobs.List()
	active := 0
	for _, j := range all {
		if !j.Status.Terminal() {
			active++
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now(),
		ActiveJobs: active,
		StoredJobs: len(all),
	})
}

// Cleanup purges expired jobs and old files now instead of waiting for the
// next scheduled pass.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	before := h.Jobs.Count()
	h.Jobs.Purge()
	removedJobs := before - h.Jobs.Count()
	if removedJobs < 0 {
		removedJobs = 0
	}

	removedFiles := 0
	if h.Files != nil {
		n, err := h.Files.RunNow()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Cleanup failed", err)
			return
		}
		removedFiles = n
	}

	writeJSON(w, http.StatusOK, CleanupResponse{
		Message:      fmt.Sprintf("Cleanup completed. Removed %d old jobs.", removedJobs),
		RemovedJobs:  removedJobs,
		RemovedFiles: removedFiles,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps input and parameter errors to 400, anything else to 500.
func statusFor(err error) int {
	if table.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isWorkbook(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xls"
}

func saveFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return dst.Close()
}

func formInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, raw)
	}
	return v, nil
}

// formOptionalInt returns nil for a blank field so the caller can tell
// "not sent" from an explicit 0.
func formOptionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an integer", name, raw)
	}
	return &v, nil
}

func formList(r *http.Request, name string) []string {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// formRates decodes the optional "rates" field, e.g. {"EUR": 1.08}.
func formRates(r *http.Request) (map[string]decimal.Decimal, error) {
	raw := strings.TrimSpace(r.FormValue("rates"))
	if raw == "" {
		return nil, nil
	}
	var rates map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}
	return rates, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
