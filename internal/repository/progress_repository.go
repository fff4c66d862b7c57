package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// ProgressRepository reads the per-user progress record maintained by the
// background workers.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Get returns the user's progress. A user with no record yet gets a zero
// value rather than an error.
func (r *ProgressRepository) Get(ctx context.Context, userID int) (*model.Progress, error) {
	p := &model.Progress{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT total_interviews, average_score, last_interview_date, hr_attempts, average_confidence, updated_at
		 FROM user_progress WHERE user_id = $1`, userID,
	).Scan(
		&p.MockInterview.TotalInterviews, &p.MockInterview.AverageScore, &p.MockInterview.LastInterviewDate,
		&p.HRAttempts, &p.AverageConfidence, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
