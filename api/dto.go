/*
dto.go - Data Transfer Objects for API requests/responses

PURPOSE:
  Defines the JSON shapes the upload frontend sends and receives. Job
  records are exposed through JobStatusDTO so server-side paths and engine
  parameters never leave the process.

NAMING CONVENTION:
  - *Response: Response body
  - *DTO: Shared shape used in several responses

SEE ALSO:
  - handlers.go: Uses these DTOs
  - jobs/jobs.go: Job record
*/
package api

import (
	"time"

	"github.com/warp/ctr-mapper/jobs"
)

// UploadResponse is returned when a job is accepted.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
}

// JobStatusDTO is the polling view of a job.
type JobStatusDTO struct {
	JobID          string     `json:"job_id"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	Error          string     `json:"error,omitempty"`
	OriginalName   string     `json:"original_filename,omitempty"`
	Result         any        `json:"result,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ProcessingTime float64    `json:"processing_time,omitempty"`
}

func toJobStatusDTO(j *jobs.Job) JobStatusDTO {
	return JobStatusDTO{
		JobID:          j.ID,
		Type:           string(j.Type),
		Status:         string(j.Status),
		Message:        j.Message,
		Error:          j.Error,
		OriginalName:   j.OriginalName,
		Result:         j.Result,
		CreatedAt:      j.CreatedAt,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		ProcessingTime: j.ProcessingTime,
	}
}

// CompanyCodesResponse lists the distinct company codes of an upload.
type CompanyCodesResponse struct {
	Success      bool     `json:"success"`
	CompanyCodes []string `json:"company_codes"`
	TotalCount   int      `json:"total_count"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	ActiveJobs int       `json:"active_jobs"`
	StoredJobs int       `json:"stored_jobs"`
}

type CleanupResponse struct {
	Message      string `json:"message"`
	RemovedJobs  int    `json:"removed_jobs"`
	RemovedFiles int    `json:"removed_files"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
