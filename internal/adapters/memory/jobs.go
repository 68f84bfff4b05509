// Package memory provides process-local stores used when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
)

// Jobs is an in-memory JobRepository. Jobs are claimed in enqueue order.
type Jobs struct {
	mu    sync.RWMutex
	jobs  map[string]*ports.ScanJob
	queue []string
	now   func() time.Time
}

func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]*ports.ScanJob), now: time.Now}
}

func (j *Jobs) Enqueue(_ context.Context, query string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := uuid.New().String()
	j.jobs[id] = &ports.ScanJob{
		ID:       id,
		Query:    query,
		Status:   ports.JobQueued,
		QueuedAt: j.now().UTC(),
	}
	j.queue = append(j.queue, id)
	return id, nil
}

func (j *Jobs) ClaimNext(_ context.Context) (ports.ScanJob, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for len(j.queue) > 0 {
		id := j.queue[0]
		j.queue = j.queue[1:]
		job := j.jobs[id]
		// may have been started inline already
		if job.Status != ports.JobQueued {
			continue
		}
		j.start(job)
		return copyJob(job), true, nil
	}
	return ports.ScanJob{}, false, nil
}

func (j *Jobs) MarkCompleted(_ context.Context, jobID string, result domain.ScanResult) error {
	return j.update(jobID, func(job *ports.ScanJob) {
		r := result.Clone()
		job.Status = ports.JobCompleted
		job.Result = &r
		finish(job, j.now())
	})
}

func (j *Jobs) MarkFailed(_ context.Context, jobID string, reason string) error {
	return j.update(jobID, func(job *ports.ScanJob) {
		job.Status = ports.JobFailed
		job.Error = reason
		finish(job, j.now())
	})
}

// StartJob claims jobID directly, provided it is still queued.
func (j *Jobs) StartJob(_ context.Context, jobID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	job, ok := j.jobs[jobID]
	if !ok {
		return ports.ErrJobNotFound
	}
	if job.Status != ports.JobQueued {
		return ports.ErrJobNotQueued
	}
	j.start(job)
	return nil
}

func (j *Jobs) Get(_ context.Context, jobID string) (ports.ScanJob, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	job, ok := j.jobs[jobID]
	if !ok {
		return ports.ScanJob{}, ports.ErrJobNotFound
	}
	return copyJob(job), nil
}

func (j *Jobs) start(job *ports.ScanJob) {
	t := j.now().UTC()
	job.Status = ports.JobRunning
	job.StartedAt = &t
	job.Attempts++
}

func (j *Jobs) update(jobID string, fn func(*ports.ScanJob)) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	job, ok := j.jobs[jobID]
	if !ok {
		return ports.ErrJobNotFound
	}
	fn(job)
	return nil
}

func copyJob(job *ports.ScanJob) ports.ScanJob {
	out := *job
	if job.Result != nil {
		r := job.Result.Clone()
		out.Result = &r
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		out.StartedAt = &t
	}
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

func finish(job *ports.ScanJob, now time.Time) {
	t := now.UTC()
	job.FinishedAt = &t
}
