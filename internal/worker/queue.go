package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis

	flushTimeout         = 10 * time.Second
	redisRetryDelay      = 3 * time.Second
	requeueBackoff       = 2 * time.Second
)

// DB is the subset of *pgxpool.Pool the workers write through.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// queue drains one Redis list in batches. flush receives at most BatchSize
// items and returns those that must go back on the list.
type queue[T any] struct {
	rdb     *redis.Client
	key     string
	log     zerolog.Logger
	flush   func(ctx context.Context, batch []T) (failed []T)
	backoff time.Duration
}

// run blocks until ctx is cancelled. Flushes never run on ctx itself, so a
// shutdown arriving mid-write cannot lose the batch.
func (q *queue[T]) run(ctx context.Context) {
	buffer := make([]T, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			if q.flushSafe(ctx, buffer) {
				// Avoid thrashing while the database is down.
				sleep(ctx, q.backoff)
			}
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			q.shutdown(buffer)
			return
		default:
		}

		// BLPop returns as soon as an item exists.
		result, err := q.rdb.BLPop(ctx, PollTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			q.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleep(ctx, redisRetryDelay)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			// Malformed payloads can never succeed.
			q.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		buffer = append(buffer, item)
	}
}

// flushSafe writes batch and requeues what failed, detached from ctx's
// cancellation and bounded by flushTimeout. It reports whether anything was
// requeued.
func (q *queue[T]) flushSafe(ctx context.Context, batch []T) bool {
	if len(batch) == 0 {
		return false
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	failed := q.flush(wctx, batch)
	if len(failed) == 0 {
		return false
	}
	q.requeue(wctx, failed)
	return true
}

func (q *queue[T]) requeue(ctx context.Context, items []T) {
	pipe := q.rdb.Pipeline()
	for _, it := range items {
		data, _ := json.Marshal(it)
		pipe.RPush(ctx, q.key, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	q.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
}

func (q *queue[T]) shutdown(buffer []T) {
	q.log.Info().Int("pending", len(buffer)).Msg("Worker stopping, flushing remaining buffer...")
	q.flushSafe(context.Background(), buffer)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
