// Package deadletter captures permanently-failed jobs into a durable,
// operator-drained list instead of dropping them.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coreybb/newsfeeds/models"
)

// Recorder appends a terminal-failure record when a job exhausts its
// retry budget.
type Recorder interface {
	Record(ctx context.Context, job *models.Job, cause error) error
}

// RedisRecorder appends records to a named Redis list. The list is
// unbounded and never trimmed by this process; draining is an
// operational concern.
type RedisRecorder struct {
	client *redis.Client
	key    string
}

// NewRedisRecorder creates a recorder bound to the given list key.
func NewRedisRecorder(client *redis.Client, key string) *RedisRecorder {
	return &RedisRecorder{client: client, key: key}
}

// Record serializes and appends a DeadLetterRecord. This is the last line
// of defense against silent data loss, so an append failure is logged at
// the highest severity in addition to being returned.
func (r *RedisRecorder) Record(ctx context.Context, job *models.Job, cause error) error {
	record := models.DeadLetterRecord{
		Company:  job.WorkItem.Company,
		Source:   job.WorkItem.Source,
		Attempt:  job.Attempt,
		Error:    cause.Error(),
		FailedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		log.Printf("ERROR (DeadLetter): FAILED TO SERIALIZE record for %s: %v (original failure: %v)",
			job.WorkItem, err, cause)
		return fmt.Errorf("failed to serialize dead-letter record: %w", err)
	}

	if err := r.client.LPush(ctx, r.key, data).Err(); err != nil {
		log.Printf("ERROR (DeadLetter): FAILED TO APPEND record for %s to %q: %v (original failure: %v)",
			job.WorkItem, r.key, err, cause)
		return fmt.Errorf("failed to append dead-letter record: %w", err)
	}

	log.Printf("WARN (DeadLetter): Recorded terminal failure for %s after attempt %d: %v",
		job.WorkItem, job.Attempt, cause)
	return nil
}
