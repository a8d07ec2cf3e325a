package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreybb/newsfeeds/models"
)

// MemoryQueue is an in-process Queue honoring the same at-least-once
// contract as RedisQueue: visibility timeouts, delayed retries, and ack
// removal. It exists so the coordination layer can be exercised without a
// live broker.
type MemoryQueue struct {
	mu       sync.Mutex
	opts     Options
	pending  []string
	inflight map[string]time.Time // job ID -> visibility deadline
	delayed  map[string]time.Time // job ID -> earliest redelivery
	jobs     map[string]models.Job
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue(opts Options) *MemoryQueue {
	return &MemoryQueue{
		opts:     opts.withDefaults(),
		inflight: make(map[string]time.Time),
		delayed:  make(map[string]time.Time),
		jobs:     make(map[string]models.Job),
	}
}

// Enqueue makes the job immediately deliverable.
func (q *MemoryQueue) Enqueue(_ context.Context, job *models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs[job.ID] = *job
	q.pending = append(q.pending, job.ID)
	return nil
}

// Dequeue claims the next ready job, polling until the window closes.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*models.Job, error) {
	deadline := time.Now().Add(q.opts.PollInterval)

	for {
		if job, err := q.tryDequeue(); job != nil || err != nil {
			return job, err
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) tryDequeue() (*models.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.reclaimLocked()

	for len(q.pending) > 0 {
		id := q.pending[0]
		q.pending = q.pending[1:]

		job, ok := q.jobs[id]
		if !ok {
			continue // acked while still queued
		}
		if err := job.Transition(models.JobStateInFlight); err != nil {
			return nil, err
		}

		q.jobs[id] = job
		q.inflight[id] = time.Now().Add(q.opts.VisibilityTimeout)

		delivered := job
		return &delivered, nil
	}
	return nil, nil
}

// Ack removes the job entirely.
func (q *MemoryQueue) Ack(_ context.Context, job *models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, job.ID)
	delete(q.jobs, job.ID)
	return nil
}

// Retry reschedules the job after the delay with an incremented attempt.
func (q *MemoryQueue) Retry(_ context.Context, job *models.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[job.ID]; !ok {
		return fmt.Errorf("cannot retry unknown job %s", job.ID)
	}
	if err := job.Transition(models.JobStateRetrying); err != nil {
		return err
	}
	job.Attempt++

	q.jobs[job.ID] = *job
	delete(q.inflight, job.ID)
	q.delayed[job.ID] = time.Now().Add(delay)
	return nil
}

// reclaimLocked moves due delayed jobs and expired in-flight jobs back to
// pending. Callers must hold q.mu.
func (q *MemoryQueue) reclaimLocked() {
	now := time.Now()

	for id, readyAt := range q.delayed {
		if now.Before(readyAt) {
			continue
		}
		delete(q.delayed, id)
		q.pending = append(q.pending, id)
	}

	for id, visDeadline := range q.inflight {
		if now.Before(visDeadline) {
			continue
		}
		delete(q.inflight, id)
		if job, ok := q.jobs[id]; ok {
			job.State = models.JobStateQueued
			q.jobs[id] = job
		}
		q.pending = append(q.pending, id)
	}
}

// Depth reports how many jobs are queued, delayed, or in flight.
func (q *MemoryQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
