package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func TestAddJob_RegistersEntry(t *testing.T) {
	sched := New(testLog())

	require.NoError(t, sched.AddJob("0 30 22 * * *", &countingJob{name: "price_sync"}))

	entries := sched.Jobs()
	require.Len(t, entries, 1)
	assert.Equal(t, "price_sync", entries[0].Name)
	assert.Equal(t, "0 30 22 * * *", entries[0].Schedule)

	assert.True(t, sched.HasJob("price_sync"))
	assert.False(t, sched.HasJob("metrics_calc"))
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	sched := New(testLog())

	err := sched.AddJob("not a schedule", &countingJob{name: "price_sync"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_sync")
	assert.Empty(t, sched.Jobs())
}

func TestJobs_SortedByName(t *testing.T) {
	sched := New(testLog())

	require.NoError(t, sched.AddJob("0 0 3 * * SUN", &countingJob{name: "history_cleanup"}))
	require.NoError(t, sched.AddJob("0 30 22 * * *", &countingJob{name: "price_sync"}))
	require.NoError(t, sched.AddJob("0 0 4 * * *", &countingJob{name: "db_health"}))

	entries := sched.Jobs()
	require.Len(t, entries, 3)
	assert.Equal(t, "db_health", entries[0].Name)
	assert.Equal(t, "history_cleanup", entries[1].Name)
	assert.Equal(t, "price_sync", entries[2].Name)
}

func TestRunNow(t *testing.T) {
	sched := New(testLog())

	job := &countingJob{name: "metrics_calc"}
	require.NoError(t, sched.AddJob("0 15 23 * * *", job))

	require.NoError(t, sched.RunNow("metrics_calc"))
	assert.Equal(t, 1, job.runs)
}

func TestRunNow_PropagatesJobError(t *testing.T) {
	sched := New(testLog())

	job := &countingJob{name: "screener", err: errors.New("no securities to screen")}
	require.NoError(t, sched.AddJob("0 45 23 * * *", job))

	err := sched.RunNow("screener")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no securities")
}

func TestRunNow_UnknownJob(t *testing.T) {
	sched := New(testLog())

	err := sched.RunNow("nope")
	require.ErrorIs(t, err, ErrUnknownJob)
}
