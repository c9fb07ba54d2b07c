package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunJob represents the conversion_jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:conversion_jobs,alias:j"`

	ID          string     `bun:"id,pk"` // ULID as string
	Tool        string     `bun:"tool,notnull"`
	Status      string     `bun:"status,notnull,default:'running'"`
	RequestID   string     `bun:"request_id,nullzero"`
	InputCount  int        `bun:"input_count,notnull,default:0"`
	InputBytes  int64      `bun:"input_bytes,notnull,default:0"`
	OutputName  string     `bun:"output_name,nullzero"`
	OutputCount int        `bun:"output_count,notnull,default:0"`
	OutputBytes int64      `bun:"output_bytes,notnull,default:0"`
	Error       string     `bun:"error,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
	DurationMs  int64      `bun:"duration_ms,notnull,default:0"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:          parsedULID,
		Tool:        bj.Tool,
		Status:      JobStatus(bj.Status),
		RequestID:   bj.RequestID,
		InputCount:  bj.InputCount,
		InputBytes:  bj.InputBytes,
		OutputName:  bj.OutputName,
		OutputCount: bj.OutputCount,
		OutputBytes: bj.OutputBytes,
		Error:       bj.Error,
		CreatedAt:   bj.CreatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
		DurationMs:  bj.DurationMs,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Tool:        job.Tool,
		Status:      string(job.Status),
		RequestID:   job.RequestID,
		InputCount:  job.InputCount,
		InputBytes:  job.InputBytes,
		OutputName:  job.OutputName,
		OutputCount: job.OutputCount,
		OutputBytes: job.OutputBytes,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		DurationMs:  job.DurationMs,
	}
}

// bunJobsToJobs converts a slice of BunJob to Job
func bunJobsToJobs(bunJobs []BunJob) ([]Job, error) {
	jobs := make([]Job, 0, len(bunJobs))
	for _, bunJob := range bunJobs {
		job, err := bunJob.ToJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
