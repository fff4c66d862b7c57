package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/model"
	"github.com/stemsi/prepwise-backend/internal/repository"
)

const (
	progressCacheTTL = 30 * time.Second
	feedbackSummaryN = 5
)

// ProgressService records practice attempts and serves the progress record.
type ProgressService struct {
	progressRepo   *repository.ProgressRepository
	submissionRepo *repository.SubmissionRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	submissionRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ProgressService {
	return &ProgressService{
		progressRepo:   progressRepo,
		submissionRepo: submissionRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "progress_service").Logger(),
	}
}

// RecordPracticeAttempt queues attempt for the attempt worker.
func (s *ProgressService) RecordPracticeAttempt(ctx context.Context, attempt *model.PracticeAttempt) error {
	return enqueue(ctx, s.rdb, config.WorkerKey.PersistAttemptsQueue, attempt)
}

// GetProgress returns the user's progress with the latest mock interviews
// attached as the feedback summary. Results are cached briefly; workers
// drop the cache entry whenever they change the record.
func (s *ProgressService) GetProgress(ctx context.Context, userID int) (*model.Progress, error) {
	key := config.CacheKey.UserProgressKey(userID)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var p model.Progress
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Progress cache read failed")
	}

	p, err := s.progressRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	recent, err := s.submissionRepo.RecentMock(ctx, userID, feedbackSummaryN)
	if err != nil {
		return nil, fmt.Errorf("recent submissions: %w", err)
	}
	p.MockInterview.FeedbackSummary = recent

	if data, err := json.Marshal(p); err == nil {
		if err := s.rdb.Set(ctx, key, data, progressCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Int("user_id", userID).Msg("Progress cache write failed")
		}
	}
	return p, nil
}

// enqueue RPUSHes v as JSON onto a worker queue.
func enqueue(ctx context.Context, rdb *redis.Client, queue string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s item: %w", queue, err)
	}
	if err := rdb.RPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("push %s: %w", queue, err)
	}
	return nil
}
