package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/coreybb/newsfeeds/models"
)

func newTestRedisQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	q := NewRedisQueue(client, "test", Options{
		VisibilityTimeout: 80 * time.Millisecond,
		PollInterval:      60 * time.Millisecond,
	})
	return q, client
}

func TestRedisQueueEnqueueDequeueAck(t *testing.T) {
	q, _ := newTestRedisQueue(t)
	ctx := context.Background()

	job := models.NewJob(models.WorkItem{Company: "Airbus", Source: "BBC"})
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got == nil || got.ID != job.ID {
		t.Fatalf("expected job %s, got %+v", job.ID, got)
	}
	if got.State != models.JobStateInFlight {
		t.Errorf("expected in-flight state, got %s", got.State)
	}

	if err := q.Ack(ctx, got); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}
	if again, err := q.Dequeue(ctx); err != nil || again != nil {
		t.Errorf("expected empty queue after ack, got (%+v, %v)", again, err)
	}
}

func TestRedisQueueDequeueEmptyReturnsNil(t *testing.T) {
	q, _ := newTestRedisQueue(t)

	job, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue on empty queue failed: %v", err)
	}
	if job != nil {
		t.Errorf("expected nil job, got %+v", job)
	}
}

// A claimed ID must never be absent from both the pending list and the
// in-flight set, or a crash mid-dequeue would lose the job forever.
func TestRedisQueueClaimRegistersInFlightAtomically(t *testing.T) {
	q, client := newTestRedisQueue(t)
	ctx := context.Background()

	job := models.NewJob(models.WorkItem{Company: "Airbus", Source: "BBC"})
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatal(err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("Dequeue failed: (%+v, %v)", got, err)
	}

	pending, err := client.LLen(ctx, q.pendingKey()).Result()
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Errorf("expected empty pending list, got %d entries", pending)
	}
	if err := client.ZScore(ctx, q.inflightKey(), got.ID).Err(); err != nil {
		t.Errorf("claimed job %s missing from in-flight set: %v", got.ID, err)
	}
}

// A claim interrupted before the payload update leaves the ID only in the
// in-flight set; the reclaim pass must surface it once the deadline passes.
func TestRedisQueueAbandonedClaimIsRedelivered(t *testing.T) {
	q, client := newTestRedisQueue(t)
	ctx := context.Background()

	job := models.NewJob(models.WorkItem{Company: "Airbus", Source: "BBC"})
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatal(err)
	}

	// Claim with an already-expired deadline and stop there, as a worker
	// dying immediately after the claim would.
	expired := time.Now().Add(-time.Second).UnixMilli()
	if err := claimScript.Run(ctx, client, []string{q.pendingKey(), q.inflightKey()}, expired).Err(); err != nil {
		t.Fatalf("claim script failed: %v", err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got == nil || got.ID != job.ID {
		t.Fatalf("expected abandoned job %s to be redelivered, got %+v", job.ID, got)
	}
	if got.Attempt != 1 {
		t.Errorf("redelivery must not consume an attempt, got %d", got.Attempt)
	}
}

func TestRedisQueueVisibilityTimeoutRedelivery(t *testing.T) {
	q, _ := newTestRedisQueue(t)
	ctx := context.Background()

	job := models.NewJob(models.WorkItem{Company: "Airbus", Source: "BBC"})
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatal(err)
	}

	first, err := q.Dequeue(ctx)
	if err != nil || first == nil {
		t.Fatalf("first Dequeue failed: (%+v, %v)", first, err)
	}

	// Never acked; wait out the visibility timeout.
	time.Sleep(120 * time.Millisecond)

	second, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("second Dequeue failed: %v", err)
	}
	if second == nil || second.ID != job.ID {
		t.Fatalf("expected redelivery of %s, got %+v", job.ID, second)
	}
	if second.Attempt != 1 {
		t.Errorf("redelivery must not consume an attempt, got %d", second.Attempt)
	}
}

func TestRedisQueueRetryDelaysAndIncrementsAttempt(t *testing.T) {
	q, _ := newTestRedisQueue(t)
	ctx := context.Background()

	job := models.NewJob(models.WorkItem{Company: "Airbus", Source: "BBC"})
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatal(err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("Dequeue failed: (%+v, %v)", got, err)
	}

	if err := q.Retry(ctx, got, 150*time.Millisecond); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}

	if early, err := q.Dequeue(ctx); err != nil || early != nil {
		t.Fatalf("job delivered before its retry delay: (%+v, %v)", early, err)
	}

	time.Sleep(100 * time.Millisecond)
	redelivered, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue after delay failed: %v", err)
	}
	if redelivered == nil || redelivered.ID != job.ID {
		t.Fatalf("expected retried job %s, got %+v", job.ID, redelivered)
	}
	if redelivered.Attempt != 2 {
		t.Errorf("expected attempt 2 after retry, got %d", redelivered.Attempt)
	}
}
