package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize     = 50
	BatchTimeout  = 2 * time.Second
	PollTimeout   = 1 * time.Second // Must be >= 1s to satisfy Redis
	FlushTimeout  = 10 * time.Second
	ShutdownGrace = 5 * time.Second
	ErrorBackoff  = 3 * time.Second
)

// batchConsumer drains a Redis list into batches of T. flush persists a
// batch and returns the items that failed; those are pushed back onto the
// queue for a later attempt.
type batchConsumer[T any] struct {
	rdb   *redis.Client
	log   zerolog.Logger
	queue string
	flush func(ctx context.Context, batch []T) (failed []T)
}

func (b *batchConsumer[T]) run(ctx context.Context) {
	buffer := make([]T, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			b.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			b.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout and returns immediately if data exists.
		result, err := b.rdb.BLPop(ctx, PollTimeout, b.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			b.log.Error().Err(err).Dur("backoff", ErrorBackoff).Msg("Redis error while polling queue")
			sleep(ctx, ErrorBackoff)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			// Malformed payloads can never succeed; drop them.
			b.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed payload")
			continue
		}
		buffer = append(buffer, item)
	}
}

// flushSafe persists batch on a context detached from worker shutdown so a
// flush in progress is not torn down halfway.
func (b *batchConsumer[T]) flushSafe(ctx context.Context, batch []T) {
	if len(batch) == 0 {
		return
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FlushTimeout)
	defer cancel()

	if failed := b.flush(fctx, batch); len(failed) > 0 {
		requeue(fctx, b.rdb, b.log, b.queue, failed)
		sleep(ctx, ErrorBackoff)
	}
}

func (b *batchConsumer[T]) shutdown(buffer []T) {
	b.log.Info().Int("pending", len(buffer)).Msg("Worker stopping, flushing remaining buffer")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	b.flushSafe(ctx, buffer)
}

// requeue pushes items back to the tail of queue in one round trip.
func requeue[T any](ctx context.Context, rdb *redis.Client, log zerolog.Logger, queue string, items []T) {
	pipe := rdb.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			log.Error().Err(err).Msg("Dropping unencodable item")
			continue
		}
		pipe.RPush(ctx, queue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: failed to requeue items, data lost")
		return
	}
	log.Warn().Int("count", len(items)).Msg("Requeued failed items")
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
