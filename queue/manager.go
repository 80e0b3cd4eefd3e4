package queue

import (
	"time"

	"travelplanner/planner"
)

// janitorInterval is how often finished jobs are checked against the retention window.
const janitorInterval = time.Minute

// Get returns a snapshot of the job.
func (q *JobQueue) Get(id string) (Job, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return j.snapshot(), nil
}

// Cancel stops a queued or running job. Canceling a finished job does nothing.
func (q *JobQueue) Cancel(id string) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.State.Finished() {
		return nil
	}
	if j.State == StateQueued {
		// No worker owns it yet, so finish it here; the worker skips it when dequeued.
		j.finish(StateCanceled, "canceled", q.now())
	} else {
		j.cancel()
	}
	log.Infof("Plan %s cancel requested", id)
	return nil
}

// Subscribe returns a channel of progress snapshots for the job, starting with the current one.
// The channel is closed when the job finishes; call the returned func to unsubscribe early.
// Slow readers may miss intermediate snapshots, never the job's final state (read it with Get).
func (q *JobQueue) Subscribe(id string) (<-chan planner.Progress, func(), error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return nil, nil, ErrJobNotFound
	}

	ch := make(chan planner.Progress, 16)
	ch <- j.Progress
	if j.State.Finished() {
		close(ch)
		return ch, func() {}, nil
	}

	sub := j.nextSub
	j.nextSub++
	j.subscribers[sub] = ch
	unsubscribe := func() {
		q.mutex.Lock()
		defer q.mutex.Unlock()
		if c, ok := j.subscribers[sub]; ok {
			close(c)
			delete(j.subscribers, sub)
		}
	}
	return ch, unsubscribe, nil
}

func (q *JobQueue) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.closed:
			return
		case <-ticker.C:
			if n := q.evictExpired(); n > 0 {
				log.Debugf("Evicted %d finished plans", n)
			}
		}
	}
}

// evictExpired drops jobs that finished more than retention ago.
func (q *JobQueue) evictExpired() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	cutoff := q.now().Add(-q.retention)
	evicted := 0
	for id, j := range q.jobs {
		if j.FinishedAt != nil && j.FinishedAt.Before(cutoff) {
			delete(q.jobs, id)
			evicted++
		}
	}
	return evicted
}
