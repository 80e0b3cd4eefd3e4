package queue

import (
	"context"
	"errors"
	"time"

	"travelplanner/planner"
)

var (
	// ErrQueueFull is returned by Enqueue when the job buffer has no room.
	ErrQueueFull = errors.New("plan queue is full")
	// ErrJobNotFound is returned for unknown or evicted job IDs.
	ErrJobNotFound = errors.New("plan job not found")
	// ErrShutdown is returned by Enqueue after Shutdown.
	ErrShutdown = errors.New("plan queue is shut down")
)

// State is where a job is in its lifecycle.
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateDone     State = "done"
	StateFailed   State = "failed"
	StateCanceled State = "canceled"
)

// Finished reports whether the state is terminal.
func (s State) Finished() bool {
	return s == StateDone || s == StateFailed || s == StateCanceled
}

// Job is a point-in-time copy of a plan job.
type Job struct {
	ID         string           `json:"id"`
	Request    planner.Request  `json:"request"`
	State      State            `json:"state"`
	Progress   planner.Progress `json:"progress"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// Runner executes one plan, reporting progress as it goes.
type Runner interface {
	Plan(ctx context.Context, req planner.Request, onProgress func(planner.Progress)) (string, error)
}

// job is the queue's mutable record behind a Job. It is guarded by JobQueue.mutex.
type job struct {
	Job
	ctx         context.Context
	cancel      context.CancelFunc
	subscribers map[int]chan planner.Progress
	nextSub     int
}

func (j *job) snapshot() Job {
	return j.Job
}

// publish records p and hands it to every subscriber that has room for it.
func (j *job) publish(p planner.Progress) {
	j.Progress = p
	for _, ch := range j.subscribers {
		select {
		case ch <- p:
		default:
		}
	}
}

// finish moves the job to a terminal state and closes every subscription.
func (j *job) finish(state State, errMsg string, at time.Time) {
	j.State = state
	j.Error = errMsg
	j.FinishedAt = &at
	j.cancel()
	for id, ch := range j.subscribers {
		close(ch)
		delete(j.subscribers, id)
	}
}
