package memory

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// ErrSchedulerStopped is reported by handles of jobs that were rejected or
// abandoned because the scheduler stopped.
var ErrSchedulerStopped = fmt.Errorf("memory scheduler stopped")

// ErrSchedulerBusy is reported by handles of jobs rejected because the
// pending queue was full.
var ErrSchedulerBusy = fmt.Errorf("memory scheduler queue full")

// Handle lets a caller optionally await a scheduled update. Most callers
// discard it (fire and forget).
type Handle struct {
	id   string
	done chan struct{}
	err  error
}

// ID returns the job's identifier, for log correlation.
func (h *Handle) ID() string {
	return h.id
}

// Done is closed when the job finished or was abandoned at shutdown.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Await blocks until the job finishes, the scheduler stops, or ctx expires.
func (h *Handle) Await(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

type schedulerJob struct {
	events []Event
	userID string
	force  bool
	handle *Handle
}

// Scheduler decouples callers from summarization and reconstruction
// latency: one long-lived worker goroutine processes scheduled updates in
// submission order. There is no parallelism within the subsystem, only
// concurrency between the foreground caller and this one worker.
type Scheduler struct {
	coordinator *Coordinator
	jobs        chan schedulerJob
	quit        chan struct{}
	wg          sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewScheduler starts the worker. queueSize bounds the pending job buffer;
// a non-positive value uses a small default.
func NewScheduler(coordinator *Coordinator, queueSize int) *Scheduler {
	if queueSize <= 0 {
		queueSize = 64
	}
	s := &Scheduler{
		coordinator: coordinator,
		jobs:        make(chan schedulerJob, queueSize),
		quit:        make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Schedule enqueues an update and returns immediately. Jobs for one user
// run in FIFO submission order. After Stop the job is rejected and the
// handle reports ErrSchedulerStopped; with a full queue it is rejected with
// ErrSchedulerBusy rather than blocking the caller.
func (s *Scheduler) Schedule(events []Event, userID string, force bool) *Handle {
	handle := &Handle{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		handle.err = ErrSchedulerStopped
		close(handle.done)
		return handle
	}
	select {
	case s.jobs <- schedulerJob{events: events, userID: userID, force: force, handle: handle}:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		handle.err = ErrSchedulerBusy
		close(handle.done)
		log.Printf("[SCHED] Queue full, rejecting memory update %s for user=%s", handle.id, userID)
		return handle
	}

	log.Printf("[SCHED] Queued memory update %s for user=%s (%d events)", handle.id, userID, len(events))
	return handle
}

// Stop halts the worker. Jobs still queued are abandoned; their handles
// complete with ErrSchedulerStopped. In-flight work is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.quit)
	s.wg.Wait()

	// Drain abandoned jobs so their handles complete.
	for {
		select {
		case job := <-s.jobs:
			job.handle.err = ErrSchedulerStopped
			close(job.handle.done)
		default:
			return
		}
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case job := <-s.jobs:
			log.Printf("[SCHED] Running memory update %s for user=%s", job.handle.id, job.userID)
			s.coordinator.Update(context.Background(), job.events, job.userID, job.force)
			close(job.handle.done)
		}
	}
}
