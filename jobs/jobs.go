// Package jobs runs report jobs in the background and tracks their status.
//
// A job is submitted with its uploaded input file, waits in a bounded queue,
// is run by one of a fixed number of workers, and is kept in the Store until
// the retention window expires. Jobs move strictly forward:
//
//	pending -> processing -> completed | failed
package jobs

import (
	"context"
	"errors"
	"time"
)

// Type selects the engine a job runs.
type Type string

const (
	TypePoliza   Type = "poliza"
	TypeMaturity Type = "maturity"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the job has finished.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrNotFound    = errors.New("job not found")
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueFull   = errors.New("queue is full")
)

// Job is one report run.
type Job struct {
	ID   string `json:"job_id"`
	Type Type   `json:"type"`

	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// OriginalName is the uploaded file name; InputPath and OutputPath are
	// server-side paths and never leave the process.
	OriginalName string `json:"original_filename,omitempty"`
	InputPath    string `json:"-"`
	OutputPath   string `json:"-"`

	// Params is the engine configuration, Result its summary on success.
	Params any `json:"-"`
	Result any `json:"result,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ProcessingTime float64    `json:"processing_time_seconds,omitempty"`
}

// Handler runs a job and returns the engine's result summary.
type Handler func(ctx context.Context, job *Job) (any, error)
