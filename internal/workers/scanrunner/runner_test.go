package scanrunner

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustscan/internal/adapters/memory"
	"trustscan/internal/domain"
	"trustscan/internal/ports"
)

type fakeScanner struct{}

func (fakeScanner) Scan(_ context.Context, query string) (domain.ScanResult, error) {
	if query == "bad" {
		return domain.ScanResult{}, domain.ErrInvalidTarget
	}
	return domain.ScanResult{Hostname: query, Score: 93}, nil
}

func (fakeScanner) Evict(context.Context, string) error { return nil }

func TestProcessInline(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	jobs := memory.NewJobs()
	proc := ScanProcessor{Scanner: fakeScanner{}}

	ok, _ := jobs.Enqueue(ctx, "example.com")
	require.NoError(t, ProcessInline(ctx, jobs, proc, ok, log))
	job, err := jobs.Get(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, ports.JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, 93, job.Result.Score)

	bad, _ := jobs.Enqueue(ctx, "bad")
	assert.ErrorIs(t, ProcessInline(ctx, jobs, proc, bad, log), domain.ErrInvalidTarget)
	job, err = jobs.Get(ctx, bad)
	require.NoError(t, err)
	assert.Equal(t, ports.JobFailed, job.Status)
	assert.Equal(t, "invalid domain format", job.Error)

	assert.ErrorIs(t, ProcessInline(ctx, jobs, proc, ok, log), ports.ErrJobNotQueued)
}

func TestRunDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log, _ := test.NewNullLogger()
	jobs := memory.NewJobs()

	var ids []string
	for _, q := range []string{"a.com", "b.com", "bad"} {
		id, err := jobs.Enqueue(ctx, q)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	Run(ctx, jobs, ScanProcessor{Scanner: fakeScanner{}}, 2, 10*time.Millisecond, log)

	assert.Eventually(t, func() bool {
		for _, id := range ids {
			job, err := jobs.Get(ctx, id)
			if err != nil || (job.Status != ports.JobCompleted && job.Status != ports.JobFailed) {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	job, _ := jobs.Get(ctx, ids[2])
	assert.Equal(t, ports.JobFailed, job.Status)
}
