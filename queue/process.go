package queue

import (
	"context"
	"errors"
	"fmt"

	"travelplanner/planner"
)

// process pulls jobs off the queue until Shutdown.
func (q *JobQueue) process() {
	defer q.wg.Done()
	for {
		select {
		case <-q.closed:
			q.drain()
			return
		case j := <-q.queue:
			q.run(j)
		}
	}
}

// drain marks whatever is left in the buffer as canceled.
func (q *JobQueue) drain() {
	for {
		select {
		case j := <-q.queue:
			q.mutex.Lock()
			if !j.State.Finished() {
				j.finish(StateCanceled, "server shutting down", q.now())
			}
			q.mutex.Unlock()
		default:
			return
		}
	}
}

func (q *JobQueue) run(j *job) {
	q.mutex.Lock()
	if j.State.Finished() {
		// Canceled while waiting.
		q.mutex.Unlock()
		return
	}

	// The timeout budget starts when the job was enqueued.
	remaining := q.timeout - q.now().Sub(j.CreatedAt)
	if q.timeout > 0 && remaining <= 0 {
		j.finish(StateFailed, "timed out in queue", q.now())
		q.mutex.Unlock()
		log.Warnf("Plan %s timed out in queue", j.ID)
		return
	}
	started := q.now()
	j.State = StateRunning
	j.StartedAt = &started
	ctx := j.ctx
	q.activeCount++
	q.needsLog = true
	q.mutex.Unlock()
	defer q.decrementActive()

	var cancel context.CancelFunc
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, remaining)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	log.Infof("Plan %s started", j.ID)
	_, err := q.runner.Plan(ctx, j.Request, func(p planner.Progress) {
		q.mutex.Lock()
		j.publish(p)
		q.mutex.Unlock()
	})

	q.mutex.Lock()
	defer q.mutex.Unlock()
	if j.State.Finished() {
		return
	}
	switch {
	case err == nil:
		j.finish(StateDone, "", q.now())
		log.Infof("Plan %s done", j.ID)
	case errors.Is(err, context.DeadlineExceeded):
		j.finish(StateFailed, fmt.Sprintf("timed out after %s", q.timeout), q.now())
		log.Warnf("Plan %s timed out", j.ID)
	case errors.Is(err, context.Canceled):
		j.finish(StateCanceled, "canceled", q.now())
		log.Infof("Plan %s canceled", j.ID)
	default:
		j.finish(StateFailed, err.Error(), q.now())
		log.Errorf("Plan %s failed: %v", j.ID, err)
	}
}
