// Package queue provides the durable, at-least-once job queue between the
// producers (scheduler, CLI enqueuer) and the worker pool. A dequeued job
// that is never acked becomes redeliverable after the visibility timeout,
// and an explicit Retry reschedules it with a delay and an incremented
// attempt counter.
package queue

import (
	"context"
	"time"

	"github.com/coreybb/newsfeeds/models"
)

// Queue is the enqueue/dequeue/ack contract shared by the Redis-backed
// broker and the in-memory implementation used in tests.
type Queue interface {
	// Enqueue makes the job immediately available for delivery.
	Enqueue(ctx context.Context, job *models.Job) error

	// Dequeue claims the next available job, marking it in-flight until
	// Ack, Retry, or expiry of the visibility timeout. It returns
	// (nil, nil) when no job became available within the poll window.
	Dequeue(ctx context.Context) (*models.Job, error)

	// Ack removes a fully completed (or dead-lettered) job from the queue.
	Ack(ctx context.Context, job *models.Job) error

	// Retry reschedules an in-flight job for redelivery after the given
	// delay, incrementing its attempt counter.
	Retry(ctx context.Context, job *models.Job, delay time.Duration) error
}

// Options tunes delivery behavior shared by queue implementations.
type Options struct {
	// VisibilityTimeout bounds how long a dequeued-but-unacked job stays
	// invisible before it is redelivered.
	VisibilityTimeout time.Duration

	// PollInterval bounds how long a single Dequeue call blocks waiting
	// for work.
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = 2 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	return o
}
