package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// AttemptWorker consumes persist_attempts_queue one item at a time. Each
// attempt is stored and folded into the HR progress counters in a single
// transaction, so the running average never sees a half-applied attempt.
type AttemptWorker struct {
	pool  *pgxpool.Pool
	rdb   *redis.Client
	log   zerolog.Logger
	queue string
}

func NewAttemptWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AttemptWorker {
	return &AttemptWorker{
		pool:  pool,
		rdb:   rdb,
		log:   log.With().Str("component", "attempt_worker").Logger(),
		queue: config.WorkerKey.PersistAttemptsQueue,
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AttemptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("AttemptWorker stopping...")
			dctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
			w.drain(dctx)
			cancel()
			w.log.Info().Msg("AttemptWorker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AttemptWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, PollTimeout, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			sleep(ctx, ErrorBackoff)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var attempt model.PracticeAttempt
	if err := json.Unmarshal([]byte(result[1]), &attempt); err != nil {
		w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed attempt")
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FlushTimeout)
	defer cancel()

	if err := w.persist(pctx, &attempt); err != nil {
		w.log.Error().Err(err).
			Int("user_id", attempt.UserID).
			Str("question_id", attempt.QuestionID.String()).
			Dur("backoff", ErrorBackoff).
			Msg("Persist error, requeueing")
		w.rdb.RPush(pctx, w.queue, result[1])
		sleep(ctx, ErrorBackoff)
	}
}

func (w *AttemptWorker) persist(ctx context.Context, a *model.PracticeAttempt) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO practice_attempts
		     (user_id, kind, question_id, question, answer, confidence, ideal_answer, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.UserID, string(a.Kind), a.QuestionID, a.Question, a.Answer, a.Confidence, a.IdealAnswer, a.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO user_progress AS p (user_id, hr_attempts, average_confidence, updated_at)
		 VALUES ($1, 1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET average_confidence = (p.average_confidence * p.hr_attempts + EXCLUDED.average_confidence)
		                          / (p.hr_attempts + 1),
		     hr_attempts = p.hr_attempts + 1,
		     updated_at = NOW()`,
		a.UserID, float64(a.Confidence),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := w.rdb.Del(ctx, config.CacheKey.UserProgressKey(a.UserID)).Err(); err != nil {
		w.log.Warn().Err(err).Int("user_id", a.UserID).Msg("Failed to invalidate cached progress")
	}
	return nil
}

// drain persists whatever is still queued before shutdown.
func (w *AttemptWorker) drain(ctx context.Context) {
	drained := 0
	for ctx.Err() == nil {
		raw, err := w.rdb.LPop(ctx, w.queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				w.log.Error().Err(err).Msg("Drain pop error")
			}
			break
		}

		var attempt model.PracticeAttempt
		if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persist(ctx, &attempt); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, w.queue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining attempts")
	}
}

