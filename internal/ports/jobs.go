package ports

import (
	"context"
	"errors"
	"time"

	"trustscan/internal/domain"
)

var (
	ErrJobNotFound  = errors.New("scan job not found")
	ErrJobNotQueued = errors.New("scan job is not queued")
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type ScanJob struct {
	ID         string             `json:"id"`
	Query      string             `json:"query"`
	Status     JobStatus          `json:"status"`
	Attempts   int                `json:"attempts"`
	Error      string             `json:"error,omitempty"`
	Result     *domain.ScanResult `json:"result,omitempty"`
	QueuedAt   time.Time          `json:"queuedAt"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

// JobRepository supports queuing, claiming and updating scan jobs.
type JobRepository interface {
	Enqueue(ctx context.Context, query string) (jobID string, err error)
	ClaimNext(ctx context.Context) (job ScanJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string, result domain.ScanResult) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	StartJob(ctx context.Context, jobID string) error
	Get(ctx context.Context, jobID string) (ScanJob, error)
}
