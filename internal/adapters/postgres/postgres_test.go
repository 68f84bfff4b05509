package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
)

var (
	_ ports.JobRepository  = (*DB)(nil)
	_ ports.ScanRepository = (*DB)(nil)
)

// connect returns a migrated database or skips when TEST_DATABASE_URL is unset.
func connect(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE scan_jobs, scan_results, domains`)
	require.NoError(t, err)
	return db
}

func TestHistoryRoundTrip(t *testing.T) {
	db := connect(t)
	ctx := context.Background()
	target := domain.ScanTarget{Hostname: "www.example.com", URL: "https://www.example.com", Registrable: "example.com"}
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Save(ctx, target, domain.ScanResult{Hostname: target.Hostname, Score: 40, RiskLevel: domain.VerdictCritical, ScannedAt: older}))
	require.NoError(t, db.Save(ctx, target, domain.ScanResult{Hostname: target.Hostname, Score: 90, RiskLevel: domain.VerdictSafe, RedFlags: []string{}, ScannedAt: older.Add(time.Hour)}))

	res, found, err := db.LatestByDomain(ctx, "EXAMPLE.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 90, res.Score)
	assert.Equal(t, domain.VerdictSafe, res.RiskLevel)

	_, found, err = db.LatestByDomain(ctx, "missing.example")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJobQueue(t *testing.T) {
	db := connect(t)
	ctx := context.Background()

	id, err := db.Enqueue(ctx, "example.com")
	require.NoError(t, err)

	job, found, err := db.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, ports.JobRunning, job.Status)
	assert.Equal(t, 1, job.Attempts)

	_, found, err = db.ClaimNext(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.MarkCompleted(ctx, id, domain.ScanResult{Score: 55}))
	got, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ports.JobCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 55, got.Result.Score)

	assert.ErrorIs(t, db.StartJob(ctx, id), ports.ErrJobNotQueued)
	_, err = db.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ports.ErrJobNotFound)
	assert.ErrorIs(t, db.MarkFailed(ctx, "00000000-0000-0000-0000-000000000000", "x"), ports.ErrJobNotFound)
}
