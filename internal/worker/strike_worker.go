package worker

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// StrikeWorker consumes persist_strikes_queue and bulk-inserts integrity
// strikes into PostgreSQL.
type StrikeWorker struct {
	pool     *pgxpool.Pool
	log      zerolog.Logger
	consumer *batchConsumer[model.IntegrityStrike]
}

func NewStrikeWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *StrikeWorker {
	w := &StrikeWorker{
		pool: pool,
		log:  log.With().Str("component", "strike_worker").Logger(),
	}
	w.consumer = &batchConsumer[model.IntegrityStrike]{
		rdb:   rdb,
		log:   w.log,
		queue: config.WorkerKey.PersistStrikesQueue,
		flush: w.flush,
	}
	return w
}

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *StrikeWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StrikeWorker started")
	w.consumer.run(ctx)
	w.log.Info().Msg("StrikeWorker stopped")
}

// flush tries a COPY first, then falls back to row-by-row inserts so a
// single bad or duplicate row does not sink the whole batch.
func (w *StrikeWorker) flush(ctx context.Context, batch []model.IntegrityStrike) []model.IntegrityStrike {
	err := w.bulkInsert(ctx, batch)
	if err == nil {
		return nil
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.IntegrityStrike
	for _, s := range batch {
		_, err = w.pool.Exec(ctx,
			`INSERT INTO integrity_strikes
			     (session_id, user_id, kind, strike_count, threshold, question_index, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (session_id, strike_count) DO NOTHING`,
			s.SessionID, s.UserID, string(s.Kind), s.StrikeCount, s.Threshold, s.QuestionIndex, s.RecordedAt,
		)
		if err != nil {
			w.log.Error().Err(err).
				Int("user_id", s.UserID).
				Str("session_id", s.SessionID.String()).
				Msg("Insert failed, requeueing")
			failed = append(failed, s)
		}
	}
	return failed
}

func (w *StrikeWorker) bulkInsert(ctx context.Context, batch []model.IntegrityStrike) error {
	rows := make([][]any, 0, len(batch))
	for _, s := range batch {
		rows = append(rows, []any{
			s.SessionID, s.UserID, string(s.Kind), s.StrikeCount, s.Threshold, s.QuestionIndex, s.RecordedAt,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"integrity_strikes"},
		[]string{"session_id", "user_id", "kind", "strike_count", "threshold", "question_index", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}
