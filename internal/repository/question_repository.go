package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// QuestionRepository handles interview question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByCategory retrieves every question in a category.
func (r *QuestionRepository) ListByCategory(ctx context.Context, category model.QuestionCategory) ([]model.InterviewQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category, question_text, correct_answer, ideal_answer, explanation
		 FROM interview_questions WHERE category = $1
		 ORDER BY created_at, id`, string(category),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.InterviewQuestion
	for rows.Next() {
		var q model.InterviewQuestion
		if err := rows.Scan(&q.ID, &q.Category, &q.QuestionText, &q.CorrectAnswer, &q.IdealAnswer, &q.Explanation); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// BulkInsert adds questions in one round trip, skipping ones whose text
// already exists in the category. It returns how many rows were inserted.
func (r *QuestionRepository) BulkInsert(ctx context.Context, questions []model.InterviewQuestion) (int, error) {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(
			`INSERT INTO interview_questions (category, question_text, correct_answer, ideal_answer, explanation)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (category, question_text) DO NOTHING`,
			string(q.Category), q.QuestionText, q.CorrectAnswer, q.IdealAnswer, q.Explanation,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range questions {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
