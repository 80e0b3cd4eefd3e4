package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"travelplanner/planner"
)

// JobQueue runs plan jobs in FIFO order on a fixed number of workers.
type JobQueue struct {
	runner    Runner
	queue     chan *job
	jobs      map[string]*job
	timeout   time.Duration
	retention time.Duration
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	now       func() time.Time

	mutex        sync.Mutex
	activeCount  int
	needsLog     bool
	lastLogTime  time.Time
	logRateLimit time.Duration
}

// NewJobQueue starts workers goroutines pulling from a buffer of size jobs. timeout is each job's
// budget measured from when it was enqueued; finished jobs are forgotten after retention.
func NewJobQueue(runner Runner, workers, size int, timeout, retention time.Duration) *JobQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 64
	}
	q := &JobQueue{
		runner:       runner,
		queue:        make(chan *job, size),
		jobs:         make(map[string]*job),
		timeout:      timeout,
		retention:    retention,
		closed:       make(chan struct{}),
		now:          time.Now,
		logRateLimit: 1 * time.Second,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.process()
	}
	go q.monitor()
	go q.janitor()
	return q
}

// Enqueue validates req and adds a new job for it.
func (q *JobQueue) Enqueue(req planner.Request) (Job, error) {
	if err := req.Normalize(); err != nil {
		return Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		Job: Job{
			ID:        uuid.NewString(),
			Request:   req,
			State:     StateQueued,
			Progress:  planner.Progress{Total: planner.TotalSteps},
			CreatedAt: q.now(),
		},
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[int]chan planner.Progress),
	}

	q.mutex.Lock()
	defer q.mutex.Unlock()
	select {
	case <-q.closed:
		cancel()
		return Job{}, ErrShutdown
	default:
	}

	select {
	case q.queue <- j:
	default:
		cancel()
		return Job{}, ErrQueueFull
	}
	q.jobs[j.ID] = j
	q.needsLog = true
	log.Infof("Plan %s queued: %s -> %s", j.ID, req.Origin, req.Destination)
	return j.snapshot(), nil
}

// Stats returns the number of jobs waiting and running.
func (q *JobQueue) Stats() (queued, processing int) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.queue), q.activeCount
}

// monitor logs queue metrics whenever they change, at most once per logRateLimit.
func (q *JobQueue) monitor() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.closed:
			return
		case <-ticker.C:
			q.logMetrics()
		}
	}
}

func (q *JobQueue) decrementActive() {
	q.mutex.Lock()
	if q.activeCount > 0 {
		q.activeCount--
	}
	q.needsLog = true
	q.mutex.Unlock()
}

func (q *JobQueue) logMetrics() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if !q.needsLog {
		return
	}
	now := time.Now()
	if now.Sub(q.lastLogTime) >= q.logRateLimit {
		log.Infof("Plans | Queue Size: %d | Processing: %d | Tracked: %d", len(q.queue), q.activeCount, len(q.jobs))
		q.lastLogTime = now
		q.needsLog = false
	}
}

// Shutdown stops accepting jobs, cancels everything still queued or running and waits for the workers.
func (q *JobQueue) Shutdown() {
	q.closeOnce.Do(func() {
		q.mutex.Lock()
		close(q.closed)
		for _, j := range q.jobs {
			if !j.State.Finished() {
				j.cancel()
			}
		}
		q.mutex.Unlock()
		q.wg.Wait()
	})
}
