package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelplanner/planner"
)

// fakeRunner calls fn for every plan.
type fakeRunner struct {
	fn func(ctx context.Context, req planner.Request, onProgress func(planner.Progress)) (string, error)
}

func (f *fakeRunner) Plan(ctx context.Context, req planner.Request, onProgress func(planner.Progress)) (string, error) {
	return f.fn(ctx, req, onProgress)
}

func blockingRunner(release <-chan struct{}) *fakeRunner {
	return &fakeRunner{fn: func(ctx context.Context, _ planner.Request, _ func(planner.Progress)) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
}

func request() planner.Request {
	return planner.Request{Origin: "London", Destination: "Barcelona", Dates: "April 20-27, 2025", Interests: "Beaches"}
}

func waitForState(t *testing.T, q *JobQueue, id string, state State) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = q.Get(id)
		return err == nil && job.State == state
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %s", id, state)
	return job
}

func TestJobRunsToCompletion(t *testing.T) {
	runner := &fakeRunner{fn: func(_ context.Context, req planner.Request, onProgress func(planner.Progress)) (string, error) {
		onProgress(planner.Progress{Step: 1, Total: 5, Status: "working on " + req.Destination})
		onProgress(planner.Progress{Step: 5, Total: 5, Plan: "# Barcelona", Done: true})
		return "# Barcelona", nil
	}}
	q := NewJobQueue(runner, 2, 4, time.Minute, time.Hour)
	defer q.Shutdown()

	job, err := q.Enqueue(request())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StateQueued, job.State)

	done := waitForState(t, q, job.ID, StateDone)
	assert.Equal(t, "# Barcelona", done.Progress.Plan)
	assert.True(t, done.Progress.Done)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)
	assert.Empty(t, done.Error)
}

func TestEnqueueRejectsInvalidRequest(t *testing.T) {
	q := NewJobQueue(blockingRunner(nil), 1, 1, time.Minute, time.Hour)
	defer q.Shutdown()

	_, err := q.Enqueue(planner.Request{Origin: "London"})
	assert.ErrorIs(t, err, planner.ErrInvalidRequest)
}

func TestEnqueueQueueFull(t *testing.T) {
	release := make(chan struct{})
	q := NewJobQueue(blockingRunner(release), 1, 1, time.Minute, time.Hour)
	defer q.Shutdown()
	defer close(release)

	first, err := q.Enqueue(request())
	require.NoError(t, err)
	waitForState(t, q, first.ID, StateRunning)

	_, err = q.Enqueue(request())
	require.NoError(t, err)
	_, err = q.Enqueue(request())
	assert.ErrorIs(t, err, ErrQueueFull)

	queued, processing := q.Stats()
	assert.Equal(t, 1, queued)
	assert.Equal(t, 1, processing)
}

func TestCancelRunningJob(t *testing.T) {
	q := NewJobQueue(blockingRunner(make(chan struct{})), 1, 1, time.Minute, time.Hour)
	defer q.Shutdown()

	job, err := q.Enqueue(request())
	require.NoError(t, err)
	waitForState(t, q, job.ID, StateRunning)

	require.NoError(t, q.Cancel(job.ID))
	canceled := waitForState(t, q, job.ID, StateCanceled)
	assert.Equal(t, "canceled", canceled.Error)

	// Canceling again is a no-op.
	assert.NoError(t, q.Cancel(job.ID))
	assert.ErrorIs(t, q.Cancel("missing"), ErrJobNotFound)
}

func TestCancelQueuedJob(t *testing.T) {
	release := make(chan struct{})
	q := NewJobQueue(blockingRunner(release), 1, 2, time.Minute, time.Hour)
	defer q.Shutdown()

	first, err := q.Enqueue(request())
	require.NoError(t, err)
	waitForState(t, q, first.ID, StateRunning)

	second, err := q.Enqueue(request())
	require.NoError(t, err)
	require.NoError(t, q.Cancel(second.ID))

	job, err := q.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCanceled, job.State)

	close(release)
	waitForState(t, q, first.ID, StateDone)
	job, _ = q.Get(second.ID)
	assert.Equal(t, StateCanceled, job.State)
	assert.Nil(t, job.StartedAt)
}

func TestJobTimeout(t *testing.T) {
	q := NewJobQueue(blockingRunner(make(chan struct{})), 1, 1, 50*time.Millisecond, time.Hour)
	defer q.Shutdown()

	job, err := q.Enqueue(request())
	require.NoError(t, err)
	failed := waitForState(t, q, job.ID, StateFailed)
	assert.Contains(t, failed.Error, "timed out after")
}

func TestJobTimesOutInQueue(t *testing.T) {
	release := make(chan struct{})
	stubborn := &fakeRunner{fn: func(context.Context, planner.Request, func(planner.Progress)) (string, error) {
		<-release
		return "late", nil
	}}
	q := NewJobQueue(stubborn, 1, 2, 30*time.Millisecond, time.Hour)
	defer q.Shutdown()

	first, err := q.Enqueue(request())
	require.NoError(t, err)
	waitForState(t, q, first.ID, StateRunning)
	second, err := q.Enqueue(request())
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	close(release)

	failed := waitForState(t, q, second.ID, StateFailed)
	assert.Equal(t, "timed out in queue", failed.Error)
}

func TestJobFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(context.Context, planner.Request, func(planner.Progress)) (string, error) {
		return "", errors.New("agents not initialized")
	}}
	q := NewJobQueue(runner, 1, 1, time.Minute, time.Hour)
	defer q.Shutdown()

	job, err := q.Enqueue(request())
	require.NoError(t, err)
	failed := waitForState(t, q, job.ID, StateFailed)
	assert.Equal(t, "agents not initialized", failed.Error)
}

func TestSubscribe(t *testing.T) {
	step := make(chan struct{})
	runner := &fakeRunner{fn: func(_ context.Context, _ planner.Request, onProgress func(planner.Progress)) (string, error) {
		<-step
		onProgress(planner.Progress{Step: 1, Total: 5, Status: "step one"})
		<-step
		onProgress(planner.Progress{Step: 5, Total: 5, Plan: "plan", Done: true})
		return "plan", nil
	}}
	q := NewJobQueue(runner, 1, 1, time.Minute, time.Hour)
	defer q.Shutdown()

	job, err := q.Enqueue(request())
	require.NoError(t, err)
	updates, unsubscribe, err := q.Subscribe(job.ID)
	require.NoError(t, err)
	defer unsubscribe()

	initial := <-updates
	assert.Equal(t, 0, initial.Step)

	step <- struct{}{}
	assert.Equal(t, "step one", (<-updates).Status)
	step <- struct{}{}
	assert.True(t, (<-updates).Done)

	_, open := <-updates
	assert.False(t, open)

	// Subscribing to a finished job yields its final snapshot and a closed channel.
	waitForState(t, q, job.ID, StateDone)
	late, _, err := q.Subscribe(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "plan", (<-late).Plan)
	_, open = <-late
	assert.False(t, open)

	_, _, err = q.Subscribe("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEvictExpired(t *testing.T) {
	runner := &fakeRunner{fn: func(context.Context, planner.Request, func(planner.Progress)) (string, error) {
		return "ok", nil
	}}
	q := NewJobQueue(runner, 1, 1, time.Minute, time.Millisecond)
	defer q.Shutdown()

	job, err := q.Enqueue(request())
	require.NoError(t, err)
	waitForState(t, q, job.ID, StateDone)

	require.Eventually(t, func() bool { return q.evictExpired() == 1 }, time.Second, 5*time.Millisecond)
	_, err = q.Get(job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestShutdown(t *testing.T) {
	q := NewJobQueue(blockingRunner(make(chan struct{})), 1, 2, time.Minute, time.Hour)

	running, err := q.Enqueue(request())
	require.NoError(t, err)
	waitForState(t, q, running.ID, StateRunning)
	queued, err := q.Enqueue(request())
	require.NoError(t, err)

	q.Shutdown()

	job, _ := q.Get(running.ID)
	assert.Equal(t, StateCanceled, job.State)
	job, _ = q.Get(queued.ID)
	assert.Equal(t, StateCanceled, job.State)

	_, err = q.Enqueue(request())
	assert.ErrorIs(t, err, ErrShutdown)
}
