package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
)

const jobColumns = `id::text, query, status, attempts, COALESCE(error, ''), result, queued_at, started_at, finished_at`

func scanJob(row pgx.Row) (ports.ScanJob, error) {
	var (
		job    ports.ScanJob
		status string
		result *domain.ScanResult
	)
	err := row.Scan(&job.ID, &job.Query, &status, &job.Attempts, &job.Error, &result, &job.QueuedAt, &job.StartedAt, &job.FinishedAt)
	job.Status = ports.JobStatus(status)
	job.Result = result
	return job, err
}

func (db *DB) Enqueue(ctx context.Context, query string) (string, error) {
	var id string
	err := db.Pool.QueryRow(ctx, `INSERT INTO scan_jobs (query) VALUES ($1) RETURNING id::text`, query).Scan(&id)
	return id, err
}

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ScanJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var id string
	err = tx.QueryRow(ctx, `
        SELECT id::text FROM scan_jobs
        WHERE status = 'queued'
        ORDER BY queued_at
        FOR UPDATE SKIP LOCKED
        LIMIT 1
    `).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	job, err = scanJob(tx.QueryRow(ctx, `
        UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1
        WHERE id=$1
        RETURNING `+jobColumns, id))
	if err != nil {
		return job, false, err
	}
	return job, true, nil
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string, result domain.ScanResult) error {
	return db.exec(ctx, jobID, `UPDATE scan_jobs SET status='completed', result=$2, finished_at=now() WHERE id=$1`, result)
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return db.exec(ctx, jobID, `UPDATE scan_jobs SET status='failed', error=$2, finished_at=now() WHERE id=$1`, reason)
}

// StartJob claims a specific job if it is still queued.
func (db *DB) StartJob(ctx context.Context, jobID string) (err error) {
	if _, perr := uuid.Parse(jobID); perr != nil {
		return ports.ErrJobNotFound
	}
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM scan_jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if ports.JobStatus(status) != ports.JobQueued {
		return ports.ErrJobNotQueued
	}
	_, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1`, jobID)
	return err
}

func (db *DB) Get(ctx context.Context, jobID string) (ports.ScanJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return ports.ScanJob{}, ports.ErrJobNotFound
	}
	job, err := scanJob(db.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ScanJob{}, ports.ErrJobNotFound
	}
	return job, err
}

// exec runs a single-row job update and reports ErrJobNotFound when no row matched.
func (db *DB) exec(ctx context.Context, jobID, sql string, args ...any) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return ports.ErrJobNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := db.Pool.Exec(ctx, sql, append([]any{jobID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrJobNotFound
	}
	return nil
}
