// Package worker runs the bounded pool of executors that pull fetch jobs
// from the queue. The pool size is the sole admission-control knob
// bounding concurrent calls to the external provider.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coreybb/newsfeeds/config"
	"github.com/coreybb/newsfeeds/deadletter"
	"github.com/coreybb/newsfeeds/models"
	"github.com/coreybb/newsfeeds/queue"
)

const defaultJobTimeout = 60 * time.Second

// Fetcher executes the body of a fetch job. Implemented by
// ingestion.ArticleFetcher; test doubles substitute it freely.
type Fetcher interface {
	Fetch(ctx context.Context, item models.WorkItem) error
}

// Pool coordinates N concurrent executors over a shared queue. Each
// job's failure is fully contained: it either gets retried with backoff
// or dead-lettered, never raised across workers.
type Pool struct {
	queue      queue.Queue
	fetcher    Fetcher
	recorder   deadletter.Recorder
	retry      config.RetryPolicy
	size       int
	jobTimeout time.Duration
}

// NewPool creates a pool of the given size. A jobTimeout of zero selects
// the default.
func NewPool(q queue.Queue, fetcher Fetcher, recorder deadletter.Recorder, retry config.RetryPolicy, size int, jobTimeout time.Duration) *Pool {
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	return &Pool{
		queue:      q,
		fetcher:    fetcher,
		recorder:   recorder,
		retry:      retry,
		size:       size,
		jobTimeout: jobTimeout,
	}
}

// Run starts the executors and blocks until the context is cancelled and
// every in-flight job has been resolved. Jobs interrupted mid-flight are
// never acked, so the queue redelivers them after the visibility timeout.
func (p *Pool) Run(ctx context.Context) {
	log.Printf("INFO (Worker): Starting pool with %d executors", p.size)

	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id)
		}(i)
	}
	wg.Wait()

	log.Println("INFO (Worker): Pool stopped")
}

func (p *Pool) work(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("ERROR (Worker %d): Dequeue failed: %v", id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue // poll window closed with no work
		}

		p.process(ctx, id, job)
	}
}

// process resolves exactly one delivery of a job: ack on success,
// retry with backoff on a recoverable failure, dead-letter once the
// attempt budget is spent.
func (p *Pool) process(ctx context.Context, id int, job *models.Job) {
	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	err := p.fetcher.Fetch(jobCtx, job.WorkItem)
	cancel()

	if err == nil {
		if terr := job.Transition(models.JobStateCompleted); terr != nil {
			log.Printf("ERROR (Worker %d): %v", id, terr)
		}
		if aerr := p.queue.Ack(ctx, job); aerr != nil {
			log.Printf("ERROR (Worker %d): Failed to ack completed job %s: %v", id, job.ID, aerr)
		}
		return
	}

	log.Printf("WARN (Worker %d): Job %s attempt %d failed: %v", id, job.ID, job.Attempt, err)

	if job.Attempt >= p.retry.MaxAttempts {
		if terr := job.Transition(models.JobStateDeadLettered); terr != nil {
			log.Printf("ERROR (Worker %d): %v", id, terr)
		}
		// Record failures are logged at highest severity by the recorder;
		// the job is removed from the queue either way so it is never
		// retried indefinitely.
		_ = p.recorder.Record(ctx, job, err)
		if aerr := p.queue.Ack(ctx, job); aerr != nil {
			log.Printf("ERROR (Worker %d): Failed to remove dead-lettered job %s: %v", id, job.ID, aerr)
		}
		return
	}

	delay := p.retry.Delay(job.Attempt + 1)
	if rerr := p.queue.Retry(ctx, job, delay); rerr != nil {
		// Leave the job in flight; the visibility timeout will redeliver.
		log.Printf("ERROR (Worker %d): Failed to schedule retry for job %s: %v", id, job.ID, rerr)
	}
}
