package scanrunner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
)

// Processor performs the scan work for a claimed job.
type Processor interface {
	Process(ctx context.Context, job ports.ScanJob) (domain.ScanResult, error)
}

// ScanProcessor runs the job's query through the scanner.
type ScanProcessor struct{ Scanner ports.Scanner }

func (p ScanProcessor) Process(ctx context.Context, job ports.ScanJob) (domain.ScanResult, error) {
	return p.Scanner.Scan(ctx, job.Query)
}

// Run starts worker goroutines that claim jobs and process them. It returns
// immediately; workers stop when ctx is done.
func Run(ctx context.Context, repo ports.JobRepository, processor Processor, concurrency int, pollInterval time.Duration, log logrus.FieldLogger) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan ports.ScanJob, concurrency)

	// dispatcher loop
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		defer close(jobsCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for {
					job, found, err := repo.ClaimNext(ctx)
					if err != nil {
						log.WithError(err).Warn("job claim error")
						break
					}
					if !found {
						break
					}
					select {
					case jobsCh <- job:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			wlog := log.WithField("worker", idx)
			for job := range jobsCh {
				complete(ctx, repo, processor, job, wlog)
			}
		}(i)
	}
}

// ProcessInline starts and processes a specific job synchronously using the
// same processor as the background workers.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor Processor, jobID string, log logrus.FieldLogger) error {
	if err := repo.StartJob(ctx, jobID); err != nil {
		return err
	}
	job, err := repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return complete(ctx, repo, processor, job, log)
}

func complete(ctx context.Context, repo ports.JobRepository, processor Processor, job ports.ScanJob, log logrus.FieldLogger) error {
	jlog := log.WithFields(logrus.Fields{"job_id": job.ID, "query": job.Query})
	res, err := processor.Process(ctx, job)
	// the job outcome is recorded even when ctx expired during processing
	mctx := context.WithoutCancel(ctx)
	if err != nil {
		if merr := repo.MarkFailed(mctx, job.ID, err.Error()); merr != nil {
			jlog.WithError(merr).Error("mark failed")
		}
		jlog.WithError(err).Info("job failed")
		return err
	}
	if err := repo.MarkCompleted(mctx, job.ID, res); err != nil {
		jlog.WithError(err).Error("mark completed")
		return err
	}
	jlog.WithField("score", res.Score).Debug("job completed")
	return nil
}
