package worker

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// ProgressWorker folds finished mock interviews into user_progress.
type ProgressWorker struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	log      zerolog.Logger
	consumer *batchConsumer[model.ProgressUpdate]
}

func NewProgressWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	w := &ProgressWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "progress_worker").Logger(),
	}
	w.consumer = &batchConsumer[model.ProgressUpdate]{
		rdb:   rdb,
		log:   w.log,
		queue: config.WorkerKey.PersistProgressQueue,
		flush: w.flush,
	}
	return w
}

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProgressWorker started")
	w.consumer.run(ctx)
	w.log.Info().Msg("ProgressWorker stopped")
}

// progressDelta is the contribution of one batch to one user's record.
type progressDelta struct {
	UserID     int
	Count      int
	ScoreSum   float64
	LastFinish time.Time
	updates    []model.ProgressUpdate
}

// aggregate collapses a batch into one delta per user, ordered by user ID.
func aggregate(batch []model.ProgressUpdate) []*progressDelta {
	byUser := make(map[int]*progressDelta)
	for _, u := range batch {
		d, ok := byUser[u.UserID]
		if !ok {
			d = &progressDelta{UserID: u.UserID}
			byUser[u.UserID] = d
		}
		d.Count++
		d.ScoreSum += u.Score
		if u.FinishedAt.After(d.LastFinish) {
			d.LastFinish = u.FinishedAt
		}
		d.updates = append(d.updates, u)
	}

	deltas := make([]*progressDelta, 0, len(byUser))
	for _, d := range byUser {
		deltas = append(deltas, d)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].UserID < deltas[j].UserID })
	return deltas
}

func (w *ProgressWorker) flush(ctx context.Context, batch []model.ProgressUpdate) []model.ProgressUpdate {
	deltas := aggregate(batch)

	if err := w.bulkUpsert(ctx, deltas); err != nil {
		w.log.Warn().Err(err).Int("users", len(deltas)).Msg("Bulk progress upsert failed, using fallback")

		var failed []model.ProgressUpdate
		for _, d := range deltas {
			if err := w.bulkUpsert(ctx, []*progressDelta{d}); err != nil {
				w.log.Error().Err(err).Int("user_id", d.UserID).Msg("Progress upsert failed, requeueing")
				failed = append(failed, d.updates...)
				continue
			}
			w.invalidate(ctx, []*progressDelta{d})
		}
		return failed
	}

	w.invalidate(ctx, deltas)
	return nil
}

// bulkUpsert merges deltas with UNNEST. The SET clause reads the pre-update
// row, so the running average is recomputed from the old count and mean.
func (w *ProgressWorker) bulkUpsert(ctx context.Context, deltas []*progressDelta) error {
	n := len(deltas)
	users := make([]int, 0, n)
	counts := make([]int, 0, n)
	sums := make([]float64, 0, n)
	lasts := make([]time.Time, 0, n)
	for _, d := range deltas {
		users = append(users, d.UserID)
		counts = append(counts, d.Count)
		sums = append(sums, d.ScoreSum)
		lasts = append(lasts, d.LastFinish)
	}

	query := `
		INSERT INTO user_progress AS p (user_id, total_interviews, average_score, last_interview_date, updated_at)
		SELECT u.user_id, u.cnt, u.score_sum / u.cnt, u.last_at, NOW()
		FROM UNNEST(
			$1::int[],
			$2::int[],
			$3::float8[],
			$4::timestamptz[]
		) AS u (user_id, cnt, score_sum, last_at)
		ON CONFLICT (user_id) DO UPDATE
		SET average_score = (p.average_score * p.total_interviews + EXCLUDED.average_score * EXCLUDED.total_interviews)
		                    / (p.total_interviews + EXCLUDED.total_interviews),
		    total_interviews = p.total_interviews + EXCLUDED.total_interviews,
		    last_interview_date = GREATEST(p.last_interview_date, EXCLUDED.last_interview_date),
		    updated_at = NOW()
	`

	_, err := w.pool.Exec(ctx, query, users, counts, sums, lasts)
	return err
}

// invalidate drops cached progress so the next read sees the new totals.
func (w *ProgressWorker) invalidate(ctx context.Context, deltas []*progressDelta) {
	pipe := w.rdb.Pipeline()
	for _, d := range deltas {
		pipe.Del(ctx, config.CacheKey.UserProgressKey(d.UserID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn().Err(err).Msg("Failed to invalidate cached progress")
	}
}
