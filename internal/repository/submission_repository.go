package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// SubmissionRepository stores finalized interview submissions.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create stores a submission and its answers atomically. A submission whose
// ID already exists is left untouched and created is false, which makes
// redelivery of the same submission harmless.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.InterviewSubmission) (created bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`INSERT INTO interview_submissions
		     (id, session_id, user_id, kind, reason, strike_count, answered, total, score,
		      average_confidence, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		s.ID, s.SessionID, s.UserID, string(s.Kind), string(s.Reason), s.StrikeCount,
		s.Summary.Answered, s.Summary.Total, s.Summary.Score, s.Summary.AverageConfidence,
		s.StartedAt, s.FinishedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if len(s.Responses) > 0 {
		rows := make([][]any, 0, len(s.Responses))
		for i, resp := range s.Responses {
			rows = append(rows, []any{s.ID, i, resp.QuestionID, resp.Answer, resp.Confidence})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"submission_answers"},
			[]string{"submission_id", "position", "question_id", "answer", "confidence"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return false, fmt.Errorf("copy answers: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// ListByUser retrieves a page of a user's submissions, newest first, with
// the total count.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID int, kind model.InterviewKind, limit, offset int) ([]model.SubmissionRecord, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{userID}
	if kind != "" {
		where += ` AND kind = $2`
		args = append(args, string(kind))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM interview_submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT id, kind, reason, strike_count, answered, total, score, started_at, finished_at
		 FROM interview_submissions%s
		 ORDER BY finished_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	records, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// RecentMock returns the user's latest mock interview submissions.
func (r *SubmissionRepository) RecentMock(ctx context.Context, userID, limit int) ([]model.SubmissionRecord, error) {
	return r.query(ctx,
		`SELECT id, kind, reason, strike_count, answered, total, score, started_at, finished_at
		 FROM interview_submissions
		 WHERE user_id = $1 AND kind = 'mock'
		 ORDER BY finished_at DESC
		 LIMIT $2`, userID, limit)
}

func (r *SubmissionRepository) query(ctx context.Context, sql string, args ...any) ([]model.SubmissionRecord, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.SubmissionRecord{}
	for rows.Next() {
		var rec model.SubmissionRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Reason, &rec.StrikeCount, &rec.Answered, &rec.Total,
			&rec.Score, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
