package model

import (
	"time"

	"github.com/google/uuid"
)

// PracticeAttempt is one answered HR practice question, recorded for progress tracking.
type PracticeAttempt struct {
	UserID      int           `json:"user_id"`
	Kind        InterviewKind `json:"kind"`
	QuestionID  uuid.UUID     `json:"question_id"`
	Question    string        `json:"question"`
	Answer      string        `json:"answer"`
	Confidence  int           `json:"confidence"`
	IdealAnswer string        `json:"ideal_answer,omitempty"`
	RecordedAt  time.Time     `json:"recorded_at"`
}

// IntegrityStrike is a single focus-loss violation counted during a session.
type IntegrityStrike struct {
	SessionID     uuid.UUID     `json:"session_id"`
	UserID        int           `json:"user_id"`
	Kind          InterviewKind `json:"kind"`
	StrikeCount   int           `json:"strike_count"`
	Threshold     int           `json:"threshold"`
	QuestionIndex int           `json:"question_index"`
	RecordedAt    time.Time     `json:"recorded_at"`
}

// MockInterviewProgress aggregates a user's finished mock interviews.
type MockInterviewProgress struct {
	TotalInterviews   int                `json:"total_interviews"`
	LastInterviewDate *time.Time         `json:"last_interview_date"`
	AverageScore      float64            `json:"average_score"`
	FeedbackSummary   []SubmissionRecord `json:"feedback_summary"`
}

// Progress is the per-user progress record.
type Progress struct {
	UserID            int                   `json:"user_id"`
	MockInterview     MockInterviewProgress `json:"mock_interview"`
	HRAttempts        int                   `json:"hr_attempts"`
	AverageConfidence float64               `json:"average_confidence"`
	UpdatedAt         *time.Time            `json:"updated_at,omitempty"`
}
