package model

import (
	"time"

	"github.com/google/uuid"
)

// InterviewKind selects which interview flow a session runs.
type InterviewKind string

const (
	InterviewKindMock InterviewKind = "mock"
	InterviewKindHR   InterviewKind = "hr"
)

// Valid reports whether k is a known interview kind.
func (k InterviewKind) Valid() bool {
	return k == InterviewKindMock || k == InterviewKindHR
}

// QuestionCategory groups questions in the question bank.
type QuestionCategory string

const (
	QuestionCategoryTechnical QuestionCategory = "technical"
	QuestionCategoryHR        QuestionCategory = "hr"
)

// InterviewQuestion is a single prompt served during an interview session.
type InterviewQuestion struct {
	ID            uuid.UUID        `json:"id" yaml:"-"`
	Category      QuestionCategory `json:"category" yaml:"category"`
	QuestionText  string           `json:"question_text" yaml:"question_text"`
	CorrectAnswer string           `json:"correct_answer,omitempty" yaml:"correct_answer"`
	IdealAnswer   string           `json:"ideal_answer,omitempty" yaml:"ideal_answer"`
	Explanation   string           `json:"explanation,omitempty" yaml:"explanation"`
}

// InterviewResponse is the recorded answer for one question.
type InterviewResponse struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
	Confidence *int      `json:"confidence,omitempty"`
}

// FinishReason records which trigger ended a session.
type FinishReason string

const (
	FinishReasonCompleted       FinishReason = "completed"
	FinishReasonTimerExpired    FinishReason = "timer_expired"
	FinishReasonIntegrityBreach FinishReason = "integrity_breach"
)

// FeedbackItem is one line of the HR feedback summary.
type FeedbackItem struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Confidence  int    `json:"confidence"`
	IdealAnswer string `json:"ideal_answer,omitempty"`
}

// ScoreSummary is the final score shown to the candidate.
type ScoreSummary struct {
	Answered          int            `json:"answered"`
	Total             int            `json:"total"`
	Score             float64        `json:"score"`
	AverageConfidence *int           `json:"average_confidence,omitempty"`
	Feedback          []FeedbackItem `json:"feedback,omitempty"`
}

// InterviewSubmission is the payload delivered once when a session finalizes.
type InterviewSubmission struct {
	ID          uuid.UUID           `json:"id"`
	SessionID   uuid.UUID           `json:"session_id"`
	UserID      int                 `json:"user_id"`
	Kind        InterviewKind       `json:"kind"`
	Responses   []InterviewResponse `json:"responses"`
	StrikeCount int                 `json:"strike_count"`
	Reason      FinishReason        `json:"reason"`
	Summary     ScoreSummary        `json:"summary"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
}

// SubmissionRecord is a stored submission as listed in a user's history.
type SubmissionRecord struct {
	ID          uuid.UUID     `json:"id"`
	Kind        InterviewKind `json:"kind"`
	Reason      FinishReason  `json:"reason"`
	StrikeCount int           `json:"strike_count"`
	Answered    int           `json:"answered"`
	Total       int           `json:"total"`
	Score       float64       `json:"score"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// ScoreTranscriptRequest is the payload for stateless transcript scoring.
type ScoreTranscriptRequest struct {
	Transcript string `json:"transcript" binding:"notblank,max=20000"`
}
