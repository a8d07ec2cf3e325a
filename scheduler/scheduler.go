// Package scheduler periodically enumerates the configured
// (company, source) pairs and submits one fetch job per pair.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/coreybb/newsfeeds/models"
	"github.com/coreybb/newsfeeds/queue"
)

// PairLister reads the flattened (company, source) projection from the
// relational store. Implemented by datastore.CompanyRepository.
type PairLister interface {
	ListCompanySourcePairs(ctx context.Context) ([]models.WorkItem, error)
}

// Scheduler drives the periodic enqueue cycle. Submission is
// fire-and-forget: it never waits for job completion and never
// deduplicates against jobs still in flight from a prior cycle, since
// storage writes are idempotent replacements.
type Scheduler struct {
	pairs    PairLister
	queue    queue.Queue
	interval time.Duration
}

// New creates a Scheduler with the given cycle interval.
func New(pairs PairLister, q queue.Queue, interval time.Duration) *Scheduler {
	return &Scheduler{pairs: pairs, queue: q, interval: interval}
}

// Run executes one cycle immediately, then one per interval until the
// context is cancelled. A failed cycle is logged and skipped; the next
// tick retries implicitly.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("INFO (Scheduler): Starting with interval %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO (Scheduler): Stopping")
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	enqueued, err := s.RunOnce(ctx)
	if err != nil {
		log.Printf("ERROR (Scheduler): Cycle failed, skipping until next interval: %v", err)
		return
	}
	log.Printf("INFO (Scheduler): Cycle complete, enqueued %d jobs", enqueued)
}

// RunOnce performs a single cycle: read the full current projection and
// submit one job per pair. A projection read failure aborts the cycle;
// a failure enqueueing one pair never prevents attempting the next.
// Returns the number of jobs successfully enqueued.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	pairs, err := s.pairs.ListCompanySourcePairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read company/source projection: %w", err)
	}

	if len(pairs) == 0 {
		return 0, nil
	}

	enqueued := 0
	for _, pair := range pairs {
		job := models.NewJob(pair)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			log.Printf("ERROR (Scheduler): Failed to enqueue job for %s: %v", pair, err)
			continue
		}
		enqueued++
		log.Printf("INFO (Scheduler): Enqueued job %s for %s", job.ID, pair)
	}

	return enqueued, nil
}
