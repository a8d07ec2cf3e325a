package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coreybb/newsfeeds/config"
	"github.com/coreybb/newsfeeds/models"
	"github.com/coreybb/newsfeeds/queue"
)

// scriptedFetcher fails a configured number of leading calls, then
// succeeds, while tracking call and concurrency counts.
type scriptedFetcher struct {
	failFirst int32
	delay     time.Duration

	calls     int32
	successes int32
	current   int32
	peak      int32
}

func (f *scriptedFetcher) Fetch(ctx context.Context, item models.WorkItem) error {
	cur := atomic.AddInt32(&f.current, 1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.current, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failFirst {
		return errors.New("provider unavailable")
	}
	atomic.AddInt32(&f.successes, 1)
	return nil
}

type capturingRecorder struct {
	mu      sync.Mutex
	records []models.DeadLetterRecord
}

func (r *capturingRecorder) Record(_ context.Context, job *models.Job, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, models.DeadLetterRecord{
		Company:  job.WorkItem.Company,
		Source:   job.WorkItem.Source,
		Attempt:  job.Attempt,
		Error:    cause.Error(),
		FailedAt: time.Now().UTC(),
	})
	return nil
}

func (r *capturingRecorder) all() []models.DeadLetterRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.DeadLetterRecord, len(r.records))
	copy(out, r.records)
	return out
}

func fastRetryPolicy() config.RetryPolicy {
	return config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    1,
		MaxDelayMs:        5,
		BackoffMultiplier: 2.0,
	}
}

func testQueue() *queue.MemoryQueue {
	return queue.NewMemoryQueue(queue.Options{
		VisibilityTimeout: time.Second,
		PollInterval:      10 * time.Millisecond,
	})
}

// runPoolUntil drains the pool in the background until cond holds or the
// timeout expires, then stops the pool.
func runPoolUntil(t *testing.T, pool *Pool, timeout time.Duration, cond func() bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after context cancellation")
	}
}

func TestJobSucceedsFirstAttempt(t *testing.T) {
	q := testQueue()
	fetcher := &scriptedFetcher{}
	recorder := &capturingRecorder{}
	pool := NewPool(q, fetcher, recorder, fastRetryPolicy(), 2, time.Second)

	if err := q.Enqueue(context.Background(), models.NewJob(models.WorkItem{Company: "Airbus", Source: "BBC"})); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	runPoolUntil(t, pool, 2*time.Second, func() bool { return q.Depth() == 0 })

	if got := atomic.LoadInt32(&fetcher.successes); got != 1 {
		t.Errorf("successes = %d, want 1", got)
	}
	if got := len(recorder.all()); got != 0 {
		t.Errorf("dead letters = %d, want 0", got)
	}
}

func TestJobRetriesThenSucceeds(t *testing.T) {
	q := testQueue()
	fetcher := &scriptedFetcher{failFirst: 2} // fails attempts 1 and 2, succeeds on 3
	recorder := &capturingRecorder{}
	pool := NewPool(q, fetcher, recorder, fastRetryPolicy(), 1, time.Second)

	if err := q.Enqueue(context.Background(), models.NewJob(models.WorkItem{Company: "Airbus", Source: "BBC"})); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	runPoolUntil(t, pool, 3*time.Second, func() bool { return q.Depth() == 0 })

	if got := atomic.LoadInt32(&fetcher.calls); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
	if got := atomic.LoadInt32(&fetcher.successes); got != 1 {
		t.Errorf("successes = %d, want exactly 1", got)
	}
	if got := len(recorder.all()); got != 0 {
		t.Errorf("dead letters = %d, want 0 when a retry eventually succeeds", got)
	}
}

func TestJobExhaustsRetriesAndDeadLetters(t *testing.T) {
	q := testQueue()
	fetcher := &scriptedFetcher{failFirst: 1000} // never succeeds
	recorder := &capturingRecorder{}
	pool := NewPool(q, fetcher, recorder, fastRetryPolicy(), 1, time.Second)

	if err := q.Enqueue(context.Background(), models.NewJob(models.WorkItem{Company: "X", Source: "Y"})); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	runPoolUntil(t, pool, 3*time.Second, func() bool { return q.Depth() == 0 })

	if got := atomic.LoadInt32(&fetcher.calls); got != 3 {
		t.Errorf("fetch calls = %d, want exactly max attempts (3)", got)
	}
	if got := atomic.LoadInt32(&fetcher.successes); got != 0 {
		t.Errorf("successes = %d, want 0", got)
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("dead letters = %d, want exactly 1", len(records))
	}
	rec := records[0]
	if rec.Company != "X" || rec.Source != "Y" {
		t.Errorf("dead letter identifies wrong pair: %+v", rec)
	}
	if rec.Attempt != 3 {
		t.Errorf("dead letter attempt = %d, want 3", rec.Attempt)
	}
	if rec.Error == "" {
		t.Error("dead letter error description is empty")
	}
}

func TestConcurrencyNeverExceedsPoolSize(t *testing.T) {
	const poolSize = 3
	const jobs = 20

	q := testQueue()
	fetcher := &scriptedFetcher{delay: 20 * time.Millisecond}
	recorder := &capturingRecorder{}
	pool := NewPool(q, fetcher, recorder, fastRetryPolicy(), poolSize, time.Second)

	for i := 0; i < jobs; i++ {
		item := models.WorkItem{Company: "Airbus", Source: "BBC"}
		if err := q.Enqueue(context.Background(), models.NewJob(item)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	runPoolUntil(t, pool, 10*time.Second, func() bool { return q.Depth() == 0 })

	if got := atomic.LoadInt32(&fetcher.successes); got != jobs {
		t.Errorf("successes = %d, want %d", got, jobs)
	}
	if peak := atomic.LoadInt32(&fetcher.peak); peak > poolSize {
		t.Errorf("observed %d concurrent executions, pool size is %d", peak, poolSize)
	}
}

func TestPoolStopsOnCancelWithEmptyQueue(t *testing.T) {
	q := testQueue()
	pool := NewPool(q, &scriptedFetcher{}, &capturingRecorder{}, fastRetryPolicy(), 2, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop on cancellation")
	}
}
