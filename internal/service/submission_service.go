package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/model"
	"github.com/stemsi/prepwise-backend/internal/repository"
	"github.com/stemsi/prepwise-backend/internal/response"
)

// SubmissionService persists finalized sessions and serves their history.
type SubmissionService struct {
	repo *repository.SubmissionRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewSubmissionService(repo *repository.SubmissionRepository, rdb *redis.Client, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_service").Logger(),
	}
}

// SubmitResponses stores sub and, for a mock interview stored for the first
// time, queues its score for the progress worker. A failed enqueue is logged
// and does not fail the submission.
func (s *SubmissionService) SubmitResponses(ctx context.Context, sub *model.InterviewSubmission) error {
	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return fmt.Errorf("store submission: %w", err)
	}
	if !created {
		s.log.Info().Str("submission_id", sub.ID.String()).Msg("Submission already stored")
		return nil
	}

	s.log.Info().
		Str("submission_id", sub.ID.String()).
		Int("user_id", sub.UserID).
		Str("kind", string(sub.Kind)).
		Str("reason", string(sub.Reason)).
		Float64("score", sub.Summary.Score).
		Msg("Submission stored")

	if sub.Kind != model.InterviewKindMock {
		return nil
	}

	payload, err := json.Marshal(model.ProgressUpdate{
		UserID:       sub.UserID,
		SubmissionID: sub.ID,
		Score:        sub.Summary.Score,
		FinishedAt:   sub.FinishedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode progress update")
		return nil
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", sub.UserID).Msg("Failed to queue progress update")
	}
	return nil
}

// ListByUser returns a page of the user's submissions.
func (s *SubmissionService) ListByUser(ctx context.Context, userID int, kind model.InterviewKind, page, perPage int) ([]model.SubmissionRecord, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	records, total, err := s.repo.ListByUser(ctx, userID, kind, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return records, response.NewPagination(page, perPage, total), nil
}
