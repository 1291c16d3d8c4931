package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyJob fails its first failures runs
type flakyJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
}

func (j *flakyJob) Name() string     { return j.name }
func (j *flakyJob) Schedule() string { return j.schedule }
func (j *flakyJob) Run(context.Context) error {
	if j.calls.Add(1) <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newJob(name string, failures int32) *flakyJob {
	return &flakyJob{name: name, schedule: "0 30 18 * * 1-5", failures: failures}
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob(newJob("b", 0)))
	require.NoError(t, s.AddJob(newJob("a", 0)))
	assert.Error(t, s.AddJob(newJob("a", 0)))

	bad := newJob("bad", 0)
	bad.schedule = "not a schedule"
	assert.Error(t, s.AddJob(bad))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	s.Start()
	defer s.Stop()
	next, ok := s.NextRun("a")
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AddJob(newJob("a", 0)))

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())

	_, ok := s.NextRun("a")
	assert.False(t, ok)
	assert.Error(t, s.RunJob("a"))
}

func TestScheduler_RunNow_Retries(t *testing.T) {
	s := New(nil, WithRetry(2, time.Millisecond))

	job := newJob("flaky", 2)
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)

	hard := newJob("hard", 10)
	require.NoError(t, s.AddJob(hard))

	result, err = s.RunNow(context.Background(), "hard")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "transient", result.Error)

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScheduler_RunNow_Cancelled(t *testing.T) {
	s := New(nil, WithRetry(3, time.Hour))
	require.NoError(t, s.AddJob(newJob("hard", 10)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.RunNow(ctx, "hard")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Error, "context canceled")
}

func TestScheduler_Stats(t *testing.T) {
	s := New(nil, WithRetry(0, 0))
	job := newJob("once", 1)
	require.NoError(t, s.AddJob(job))

	ctx := context.Background()
	_, err := s.RunNow(ctx, "once") // 실패
	require.NoError(t, err)
	_, err = s.RunNow(ctx, "once") // 성공
	require.NoError(t, err)

	stats := s.GetJobStats()["once"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.5, stats.SuccessRate)
	require.NotNil(t, stats.LastRun)
	require.NotNil(t, stats.LastSuccess)
	require.NotNil(t, stats.LastFailure)
	assert.Equal(t, *stats.LastRun, *stats.LastSuccess)

	history, err := s.GetJobHistory("once")
	require.NoError(t, err)
	require.Len(t, history.Results, 2)
	assert.False(t, history.Results[0].Success)

	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%4 != 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(10), 10)
	assert.Len(t, h.GetFailedResults(), maxHistory/4)
	assert.InDelta(t, 0.75, h.GetSuccessRate(), 1e-12)
}
