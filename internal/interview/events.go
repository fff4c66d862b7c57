package interview

import "github.com/stemsi/prepwise-backend/internal/model"

// EventType names an observable session event.
type EventType string

const (
	EventQuestion       EventType = "question"
	EventTick           EventType = "tick"
	EventWarning        EventType = "warning"
	EventTranscript     EventType = "transcript"
	EventAnswerRecorded EventType = "answer_recorded"
	EventFinished       EventType = "finished"
	EventSubmitted      EventType = "submitted"
	EventSubmitFailed   EventType = "submit_failed"
	EventCancelled      EventType = "cancelled"
	EventError          EventType = "error"
)

// Event is what the session shows to the candidate. Data holds one of the
// payload types below, matching Type.
type Event struct {
	Type EventType `json:"event"`
	Data any       `json:"data,omitempty"`
}

type QuestionPayload struct {
	Index            int    `json:"index"`
	Total            int    `json:"total"`
	QuestionID       string `json:"question_id"`
	QuestionText     string `json:"question_text"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type TickPayload struct {
	Index            int `json:"index"`
	RemainingSeconds int `json:"remaining_seconds"`
}

type WarningPayload struct {
	StrikeCount int `json:"strike_count"`
	Threshold   int `json:"threshold"`
}

type TranscriptPayload struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Confidence int     `json:"confidence"`
	Tokens     []Token `json:"tokens"`
}

type AnswerPayload struct {
	Index      int    `json:"index"`
	QuestionID string `json:"question_id"`
	Confidence *int   `json:"confidence,omitempty"`
}

type FinishedPayload struct {
	Reason      model.FinishReason `json:"reason"`
	StrikeCount int                `json:"strike_count"`
	Threshold   int                `json:"threshold"`
	Summary     model.ScoreSummary `json:"summary"`
}

type SubmissionPayload struct {
	SubmissionID string `json:"submission_id"`
	Error        string `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
