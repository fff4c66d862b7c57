package interview

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// Settings tunes a session for one interview kind.
type Settings struct {
	Kind             model.InterviewKind
	QuestionSeconds  int
	IntegrityEnabled bool
	StrikeThreshold  int
	ScoreAnswers     bool
}

// Outcome is everything a transition produced. The caller renders Events,
// delivers Submission (set at most once per session) and reports Attempts
// and Strikes on a best-effort basis.
type Outcome struct {
	Events     []Event
	Submission *model.InterviewSubmission
	Attempts   []model.PracticeAttempt
	Strikes    []model.IntegrityStrike

	// restartTimer tells the Controller to re-sync its ticker.
	restartTimer bool
}

func (o *Outcome) emit(t EventType, data any) {
	o.Events = append(o.Events, Event{Type: t, Data: data})
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	SessionID uuid.UUID      `json:"session_id"`
	Status    Status         `json:"status"`
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Responses int            `json:"responses"`
	Draft     string         `json:"draft"`
	Timer     TimerState     `json:"timer"`
	Integrity IntegrityState `json:"integrity"`
}

// Machine owns one interview session and mediates every transition.
// It is not safe for concurrent use; the Controller drives it from a single
// goroutine.
type Machine struct {
	settings Settings
	userID   int
	scorer   *Scorer
	focus    FocusSource
	now      func() time.Time

	sessionID uuid.UUID
	status    Status
	questions []model.InterviewQuestion
	index     int
	draft     string
	startedAt time.Time
	responses ResponseAggregator
	timer     *Countdown
	monitor   *IntegrityMonitor

	pending Outcome
}

// NewMachine creates a NotStarted session for userID. focus may be nil when
// integrity monitoring is disabled.
func NewMachine(settings Settings, userID int, scorer *Scorer, focus FocusSource) *Machine {
	if scorer == nil {
		scorer = defaultScorer
	}
	m := &Machine{
		settings: settings,
		userID:   userID,
		scorer:   scorer,
		focus:    focus,
		now:      time.Now,
		status:   StatusNotStarted,
	}
	m.timer = NewCountdown(m.onTimerExpire)
	m.monitor = NewIntegrityMonitor(settings.StrikeThreshold)
	return m
}

// Status returns the current lifecycle state.
func (m *Machine) Status() Status {
	return m.status
}

// Snapshot returns the observable session state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		SessionID: m.sessionID,
		Status:    m.status,
		Index:     m.index,
		Total:     len(m.questions),
		Responses: m.responses.Len(),
		Draft:     m.draft,
		Timer:     m.timer.State(),
		Integrity: m.monitor.State(),
	}
}

// Responses returns a copy of the responses recorded so far.
func (m *Machine) Responses() []model.InterviewResponse {
	return m.responses.Responses()
}

// Start begins the session with questions. Starting a session that is
// already in progress is ignored.
func (m *Machine) Start(questions []model.InterviewQuestion) (Outcome, error) {
	switch m.status {
	case StatusInProgress:
		return Outcome{}, nil
	case StatusFinished:
		return Outcome{}, ErrSessionFinished
	}
	if len(questions) == 0 {
		return Outcome{}, ErrNoQuestions
	}

	m.sessionID = uuid.New()
	m.questions = slices.Clone(questions)
	m.index = 0
	m.draft = ""
	m.startedAt = m.now()
	m.responses.Reset()
	m.monitor = NewIntegrityMonitor(m.settings.StrikeThreshold)
	m.status = StatusInProgress

	m.timer.Start(m.settings.QuestionSeconds)
	m.pending.restartTimer = true
	if m.settings.IntegrityEnabled {
		m.monitor.Arm(m.focus, m.onFocusLost)
	}

	m.emitQuestion()
	return m.collect(), nil
}

// SetDraft stores the in-progress answer for the question at index.
func (m *Machine) SetDraft(index int, text string) error {
	if err := m.checkCurrent(index); err != nil {
		return err
	}
	m.draft = text
	return nil
}

// AppendTranscript appends a finalized speech segment to the draft and
// reports the live confidence score.
func (m *Machine) AppendTranscript(index int, segment string) (Outcome, error) {
	if err := m.checkCurrent(index); err != nil {
		return Outcome{}, err
	}
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return Outcome{}, nil
	}

	m.draft += segment + " "
	m.pending.emit(EventTranscript, TranscriptPayload{
		Index:      m.index,
		Text:       m.draft,
		Confidence: m.scorer.Score(m.draft),
		Tokens:     m.scorer.Highlight(m.draft),
	})
	return m.collect(), nil
}

// SubmitAnswer records the candidate's answer for the question at index and
// advances or finalizes.
func (m *Machine) SubmitAnswer(index int, text string) (Outcome, error) {
	if err := m.checkCurrent(index); err != nil {
		return Outcome{}, err
	}
	answer := strings.TrimSpace(text)
	if answer == "" {
		return Outcome{}, ErrEmptyAnswer
	}

	m.answerCurrent(answer, model.FinishReasonCompleted)
	return m.collect(), nil
}

// Tick advances the countdown by one second.
func (m *Machine) Tick() Outcome {
	if m.status != StatusInProgress {
		return Outcome{}
	}
	index := m.index
	if !m.timer.Tick() {
		if st := m.timer.State(); st.Running {
			m.pending.emit(EventTick, TickPayload{Index: index, RemainingSeconds: st.RemainingSeconds})
		}
	}
	return m.collect()
}

// Cancel abandons an in-progress session without submitting anything.
func (m *Machine) Cancel() Outcome {
	if m.status != StatusInProgress {
		return Outcome{}
	}

	m.timer.Stop()
	m.monitor.Disarm()
	m.timer = NewCountdown(m.onTimerExpire)
	m.monitor = NewIntegrityMonitor(m.settings.StrikeThreshold)
	m.responses.Reset()
	m.sessionID = uuid.Nil
	m.questions = nil
	m.index = 0
	m.draft = ""
	m.status = StatusNotStarted

	m.pending.restartTimer = true
	m.pending.emit(EventCancelled, nil)
	return m.collect()
}

// Collect returns the effects produced by focus-loss callbacks since the
// last transition.
func (m *Machine) Collect() Outcome {
	return m.collect()
}

func (m *Machine) collect() Outcome {
	out := m.pending
	m.pending = Outcome{}
	return out
}

func (m *Machine) checkCurrent(index int) error {
	switch m.status {
	case StatusFinished:
		return ErrSessionFinished
	case StatusNotStarted:
		return ErrNotInProgress
	}
	if index != m.index {
		return ErrStaleQuestion
	}
	return nil
}

func (m *Machine) onTimerExpire() {
	if m.status != StatusInProgress {
		return
	}
	m.pending.emit(EventTick, TickPayload{Index: m.index, RemainingSeconds: 0})
	m.answerCurrent(strings.TrimSpace(m.draft), model.FinishReasonTimerExpired)
}

func (m *Machine) onFocusLost() {
	if m.status != StatusInProgress {
		return
	}

	verdict := m.monitor.Strike()
	if verdict == VerdictIgnored {
		return
	}

	st := m.monitor.State()
	m.pending.Strikes = append(m.pending.Strikes, model.IntegrityStrike{
		SessionID:     m.sessionID,
		UserID:        m.userID,
		Kind:          m.settings.Kind,
		StrikeCount:   st.StrikeCount,
		Threshold:     st.Threshold,
		QuestionIndex: m.index,
		RecordedAt:    m.now(),
	})

	if verdict == VerdictWarning {
		m.pending.emit(EventWarning, WarningPayload{StrikeCount: st.StrikeCount, Threshold: st.Threshold})
		return
	}

	if !m.responses.Has(m.index) {
		m.record(strings.TrimSpace(m.draft))
	}
	m.finish(model.FinishReasonIntegrityBreach)
}

func (m *Machine) answerCurrent(answer string, reason model.FinishReason) {
	if !m.record(answer) {
		return
	}

	if m.index == len(m.questions)-1 {
		m.finish(reason)
		return
	}

	m.index++
	m.draft = ""
	m.timer.Reset(m.settings.QuestionSeconds)
	m.pending.restartTimer = true
	m.emitQuestion()
}

func (m *Machine) record(answer string) bool {
	q := m.questions[m.index]
	r := model.InterviewResponse{QuestionID: q.ID, Answer: answer}

	if m.settings.ScoreAnswers {
		confidence := m.scorer.Score(answer)
		r.Confidence = &confidence
	}

	if err := m.responses.Record(m.index, r); err != nil {
		return false
	}

	if r.Confidence != nil {
		m.pending.Attempts = append(m.pending.Attempts, model.PracticeAttempt{
			UserID:      m.userID,
			Kind:        m.settings.Kind,
			QuestionID:  q.ID,
			Question:    q.QuestionText,
			Answer:      answer,
			Confidence:  *r.Confidence,
			IdealAnswer: q.IdealAnswer,
			RecordedAt:  m.now(),
		})
	}

	m.pending.emit(EventAnswerRecorded, AnswerPayload{
		Index:      m.index,
		QuestionID: q.ID.String(),
		Confidence: r.Confidence,
	})
	return true
}

func (m *Machine) finish(reason model.FinishReason) {
	m.status = StatusFinished
	m.timer.Stop()
	m.monitor.Disarm()
	m.pending.restartTimer = true
	m.index = len(m.questions)
	m.draft = ""

	responses, ok := m.responses.Seal()
	if !ok {
		return
	}

	st := m.monitor.State()
	summary := m.summarize(responses)
	m.pending.Submission = &model.InterviewSubmission{
		ID:          uuid.New(),
		SessionID:   m.sessionID,
		UserID:      m.userID,
		Kind:        m.settings.Kind,
		Responses:   responses,
		StrikeCount: st.StrikeCount,
		Reason:      reason,
		Summary:     summary,
		StartedAt:   m.startedAt,
		FinishedAt:  m.now(),
	}
	m.pending.emit(EventFinished, FinishedPayload{
		Reason:      reason,
		StrikeCount: st.StrikeCount,
		Threshold:   st.Threshold,
		Summary:     summary,
	})
}

// summarize scores HR sessions by average confidence and mock sessions by
// the share of questions that received a non-empty answer.
func (m *Machine) summarize(responses []model.InterviewResponse) model.ScoreSummary {
	s := model.ScoreSummary{Total: len(m.questions)}

	confidenceSum, scored := 0, 0
	for i, r := range responses {
		if r.Answer != "" {
			s.Answered++
		}
		if r.Confidence == nil {
			continue
		}
		confidenceSum += *r.Confidence
		scored++
		s.Feedback = append(s.Feedback, model.FeedbackItem{
			Question:    m.questions[i].QuestionText,
			Answer:      r.Answer,
			Confidence:  *r.Confidence,
			IdealAnswer: m.questions[i].IdealAnswer,
		})
	}

	switch {
	case scored > 0:
		avg := int(math.Round(float64(confidenceSum) / float64(scored)))
		s.AverageConfidence = &avg
		s.Score = float64(avg)
	case s.Total > 0:
		s.Score = math.Round(float64(s.Answered)/float64(s.Total)*10000) / 100
	}
	return s
}

func (m *Machine) emitQuestion() {
	q := m.questions[m.index]
	m.pending.emit(EventQuestion, QuestionPayload{
		Index:            m.index,
		Total:            len(m.questions),
		QuestionID:       q.ID.String(),
		QuestionText:     q.QuestionText,
		RemainingSeconds: m.timer.State().RemainingSeconds,
	})
}
