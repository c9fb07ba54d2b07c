package database

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// JobStatus represents the status of a conversion job
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Finished reports whether the job has reached a terminal status
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one /convert request that passed validation
type Job struct {
	ID          ulid.ULID  `json:"id"`
	Tool        string     `json:"tool"`
	Status      JobStatus  `json:"status"`
	RequestID   string     `json:"requestId,omitempty"`
	InputCount  int        `json:"inputCount"`
	InputBytes  int64      `json:"inputBytes"`
	OutputName  string     `json:"outputName,omitempty"`
	OutputCount int        `json:"outputCount"`
	OutputBytes int64      `json:"outputBytes"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DurationMs  int64      `json:"durationMs"`
}

// JobSpec describes a conversion as it starts
type JobSpec struct {
	Tool       string
	RequestID  string
	InputCount int
	InputBytes int64
}

// JobResult describes the payload a completed conversion returned
type JobResult struct {
	OutputName  string
	OutputCount int
	OutputBytes int64
	Elapsed     time.Duration
}
