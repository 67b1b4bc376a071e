// Package queue implements the bounded FIFO hand-off between intake and
// dispatch: a fixed-capacity circular buffer guarded by one mutex and two
// condition variables (not-full, not-empty).
package queue

import (
	"log/slog"
	"sync"

	"github.com/mattjoyce/cmdq/internal/job"
	"github.com/mattjoyce/cmdq/internal/log"
)

// DefaultCapacity is the reference queue sizing.
const DefaultCapacity = 5

// Queue is a bounded circular buffer of job ownership handles. All shared
// state, including the run flag, is read and written under mu only.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	slots []*job.Job
	head  int
	tail  int
	count int

	running bool
	logger  *slog.Logger
}

// New creates a Queue with the given capacity. Capacities below 1 fall back
// to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		slots:   make([]*job.Job, capacity),
		running: true,
		logger:  log.WithComponent("queue"),
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Insert hands a job over to the queue, blocking while the queue is full.
// A full queue is backpressure, not an error. Returns false if shutdown was
// requested before the job could be stored; the job was not enqueued and
// ownership stays with the caller.
func (q *Queue) Insert(j *job.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == len(q.slots) && q.running {
		q.logger.Debug("queue full, waiting", "capacity", len(q.slots))
		q.notFull.Wait()
	}
	if !q.running {
		return false
	}

	q.slots[q.tail] = j
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	q.notEmpty.Signal()
	return true
}

// Remove takes the oldest job, blocking while the queue is empty and still
// running. The second return is false only when shutdown has been requested
// and the queue has drained: no more work will ever arrive.
func (q *Queue) Remove() (*job.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && q.running {
		q.notEmpty.Wait()
	}
	if q.count == 0 {
		return nil, false
	}

	j := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	q.notFull.Signal()
	return j, true
}

// RequestShutdown clears the run flag and wakes every waiter so a blocked
// producer or consumer re-evaluates instead of waiting forever. Idempotent.
func (q *Queue) RequestShutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	q.running = false
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	q.logger.Debug("shutdown requested", "pending", q.count)
}

// Running reports whether shutdown has been requested.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Depth returns the number of jobs currently buffered.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity returns the fixed slot count.
func (q *Queue) Capacity() int {
	return len(q.slots)
}
