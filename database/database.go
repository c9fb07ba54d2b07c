package database

import (
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// ErrJobNotFound is returned when no job has the requested ID
var ErrJobNotFound = errors.New("job not found")

// Repository is the conversion job log. Implementations are safe for concurrent use.
type Repository interface {
	Close() error
	CreateJob(spec JobSpec) (*Job, error)
	CompleteJob(jobID ulid.ULID, result JobResult) error
	FailJob(jobID ulid.ULID, errorMsg string, elapsed time.Duration) error
	GetJob(jobID ulid.ULID) (*Job, error)
	GetRecentJobs(limit, offset int) ([]Job, error)
	GetActiveJobs() ([]Job, error)
	DeleteOldJobs(olderThan time.Duration) (int, error)
}
