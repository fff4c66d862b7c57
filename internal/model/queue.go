package model

import (
	"time"

	"github.com/google/uuid"
)

// ProgressUpdate is queued after a mock interview submission is stored and
// folded into the user's progress record by the progress worker.
type ProgressUpdate struct {
	UserID       int       `json:"user_id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Score        float64   `json:"score"`
	FinishedAt   time.Time `json:"finished_at"`
}
