package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coreybb/newsfeeds/models"
)

// RedisQueue implements Queue on a Redis broker. Layout, all under the
// queue name as a key prefix:
//
//	<name>:pending  - LIST of job IDs ready for delivery
//	<name>:inflight - ZSET of job IDs scored by visibility deadline
//	<name>:delayed  - ZSET of job IDs scored by earliest redelivery time
//	<name>:jobs     - HASH of job ID -> serialized job payload
//
// A job ID lives in exactly one of pending/inflight/delayed while its
// payload stays in the hash; Ack removes both.
type RedisQueue struct {
	client *redis.Client
	name   string
	opts   Options
}

// NewRedisQueue creates a queue bound to the named key prefix.
func NewRedisQueue(client *redis.Client, name string, opts Options) *RedisQueue {
	return &RedisQueue{
		client: client,
		name:   name,
		opts:   opts.withDefaults(),
	}
}

// NewRedisClient connects to the broker URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}

	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping broker: %w", err)
	}
	return client, nil
}

func (q *RedisQueue) pendingKey() string  { return q.name + ":pending" }
func (q *RedisQueue) inflightKey() string { return q.name + ":inflight" }
func (q *RedisQueue) delayedKey() string  { return q.name + ":delayed" }
func (q *RedisQueue) jobsKey() string     { return q.name + ":jobs" }

// Enqueue stores the payload and pushes the ID onto the pending list.
func (q *RedisQueue) Enqueue(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job %s: %w", job.ID, err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobsKey(), job.ID, data)
	pipe.LPush(ctx, q.pendingKey(), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// claimScript pops the next pending ID and registers its visibility
// deadline in one atomic step, so a claimed job is never absent from both
// the pending list and the in-flight set. A worker crash right after the
// claim leaves the ID in the in-flight set, where the reclaim pass finds
// it once the deadline passes.
var claimScript = redis.NewScript(`
local id = redis.call("RPOP", KEYS[1])
if not id then
	return false
end
redis.call("ZADD", KEYS[2], ARGV[1], id)
return id
`)

// claimPollPause is how long Dequeue waits between empty claim attempts.
const claimPollPause = 50 * time.Millisecond

// Dequeue reclaims any due delayed or expired in-flight jobs, then polls
// for the next pending ID until the poll window closes.
func (q *RedisQueue) Dequeue(ctx context.Context) (*models.Job, error) {
	if err := q.reclaim(ctx); err != nil {
		log.Printf("WARN (RedisQueue): Reclaim pass failed: %v", err)
	}

	deadline := time.Now().Add(q.opts.PollInterval)
	for {
		if job, err := q.tryClaim(ctx); job != nil || err != nil {
			return job, err
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(claimPollPause):
		}
	}
}

func (q *RedisQueue) tryClaim(ctx context.Context) (*models.Job, error) {
	visDeadline := time.Now().Add(q.opts.VisibilityTimeout)
	res, err := claimScript.Run(ctx, q.client,
		[]string{q.pendingKey(), q.inflightKey()}, visDeadline.UnixMilli()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending job: %w", err)
	}
	id, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected claim result type %T", res)
	}

	data, err := q.client.HGet(ctx, q.jobsKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		// Payload gone: the job was acked or dead-lettered while its ID
		// was still queued. Release the claim, nothing to deliver.
		q.client.ZRem(ctx, q.inflightKey(), id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payload for job %s: %w", id, err)
	}

	var job models.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to decode payload for job %s: %w", id, err)
	}

	if err := job.Transition(models.JobStateInFlight); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(&job)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize job %s: %w", job.ID, err)
	}
	if err := q.client.HSet(ctx, q.jobsKey(), job.ID, updated).Err(); err != nil {
		return nil, fmt.Errorf("failed to store in-flight state for job %s: %w", job.ID, err)
	}
	return &job, nil
}

// Ack removes the job from the queue entirely.
func (q *RedisQueue) Ack(ctx context.Context, job *models.Job) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey(), job.ID)
	pipe.HDel(ctx, q.jobsKey(), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", job.ID, err)
	}
	return nil
}

// Retry moves an in-flight job to the delayed set with an incremented
// attempt counter.
func (q *RedisQueue) Retry(ctx context.Context, job *models.Job, delay time.Duration) error {
	if err := job.Transition(models.JobStateRetrying); err != nil {
		return err
	}
	job.Attempt++

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job %s: %w", job.ID, err)
	}

	readyAt := time.Now().Add(delay)
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobsKey(), job.ID, data)
	pipe.ZRem(ctx, q.inflightKey(), job.ID)
	pipe.ZAdd(ctx, q.delayedKey(), redis.Z{Score: float64(readyAt.UnixMilli()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to schedule retry for job %s: %w", job.ID, err)
	}
	return nil
}

// reclaim moves due delayed jobs and expired in-flight jobs back to the
// pending list. ZRem acts as the claim arbiter between competing workers:
// whoever removes the member repushes it, everyone else moves on.
func (q *RedisQueue) reclaim(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	for _, key := range []string{q.delayedKey(), q.inflightKey()} {
		ids, err := q.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", key, err)
		}

		for _, id := range ids {
			removed, err := q.client.ZRem(ctx, key, id).Result()
			if err != nil {
				return fmt.Errorf("failed to claim %s from %s: %w", id, key, err)
			}
			if removed == 0 {
				continue // another worker claimed it first
			}
			if key == q.inflightKey() {
				log.Printf("WARN (RedisQueue): Redelivering job %s after visibility timeout", id)
				if err := q.resetReclaimedState(ctx, id); err != nil {
					log.Printf("WARN (RedisQueue): Failed to reset state for %s: %v", id, err)
				}
			}
			if err := q.client.LPush(ctx, q.pendingKey(), id).Err(); err != nil {
				return fmt.Errorf("failed to repush %s: %w", id, err)
			}
		}
	}
	return nil
}

// resetReclaimedState rewrites an expired in-flight payload as queued so
// the next Dequeue can transition it back to in-flight.
func (q *RedisQueue) resetReclaimedState(ctx context.Context, id string) error {
	data, err := q.client.HGet(ctx, q.jobsKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var job models.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return err
	}
	job.State = models.JobStateQueued

	updated, err := json.Marshal(&job)
	if err != nil {
		return err
	}
	return q.client.HSet(ctx, q.jobsKey(), id, updated).Err()
}
