package interview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/model"
)

const (
	eventBuffer     = 64
	fetchTimeout    = 5 * time.Second
	deliveryTimeout = 10 * time.Second
	reportTimeout   = 3 * time.Second
)

// QuestionSource supplies the question set for a new session.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, kind model.InterviewKind) ([]model.InterviewQuestion, error)
}

// SubmissionSink persists a finalized session.
type SubmissionSink interface {
	SubmitResponses(ctx context.Context, sub *model.InterviewSubmission) error
}

// ProgressTracker records per-answer practice attempts.
type ProgressTracker interface {
	RecordPracticeAttempt(ctx context.Context, attempt *model.PracticeAttempt) error
}

// StrikeReporter records integrity strikes for later review.
type StrikeReporter interface {
	ReportStrike(ctx context.Context, strike *model.IntegrityStrike) error
}

// Deps are the collaborators of a Controller. Progress and Strikes are optional.
type Deps struct {
	Questions   QuestionSource
	Submissions SubmissionSink
	Progress    ProgressTracker
	Strikes     StrikeReporter
	Clock       Clock
}

type command func(ctx context.Context)

// Controller drives one candidate's Machine from a single goroutine. All
// inputs (commands, ticks, focus losses) are serialized through Run, so the
// Machine never sees concurrent transitions.
type Controller struct {
	userID   int
	settings Settings
	scorer   *Scorer
	deps     Deps
	log      zerolog.Logger

	focus   *FocusBus
	machine *Machine
	ticker  Ticker
	tickC   <-chan time.Time

	cmds   chan command
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewController creates a controller for userID. Call Run to start it.
func NewController(userID int, settings Settings, scorer *Scorer, deps Deps, log zerolog.Logger) *Controller {
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	c := &Controller{
		userID:   userID,
		settings: settings,
		scorer:   scorer,
		deps:     deps,
		log: log.With().
			Str("component", "interview_controller").
			Int("user_id", userID).
			Str("kind", string(settings.Kind)).
			Logger(),
		focus:  NewFocusBus(),
		cmds:   make(chan command),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	c.machine = c.newMachine()
	return c
}

// Events streams session events. It is closed after Run returns and all
// in-flight deliveries have finished.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Run processes commands and ticks until ctx is cancelled. An in-progress
// session is cancelled on exit; a submission already being delivered is
// allowed to finish.
func (c *Controller) Run(ctx context.Context) {
	defer func() {
		c.stopTicker()
		if c.machine.Status() == StatusInProgress {
			snap := c.machine.Snapshot()
			c.machine.Cancel()
			c.log.Info().
				Str("session_id", snap.SessionID.String()).
				Int("index", snap.Index).
				Msg("Session abandoned, cancelled without submission")
		}
		close(c.done)
		c.wg.Wait()
		close(c.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.cmds:
			cmd(ctx)
		case <-c.tickC:
			c.apply(ctx, c.machine.Tick())
		}
	}
}

// Start fetches questions and begins a session. It is ignored while a
// session is in progress.
func (c *Controller) Start(ctx context.Context) error {
	return c.send(ctx, c.start)
}

// Submit records an answer for the question at index.
func (c *Controller) Submit(ctx context.Context, index int, answer string) error {
	return c.send(ctx, func(ctx context.Context) {
		out, err := c.machine.SubmitAnswer(index, answer)
		if err != nil {
			c.reject(ctx, "submit", index, err)
			return
		}
		c.apply(ctx, out)
	})
}

// SetDraft replaces the draft answer for the question at index.
func (c *Controller) SetDraft(ctx context.Context, index int, text string) error {
	return c.send(ctx, func(ctx context.Context) {
		if err := c.machine.SetDraft(index, text); err != nil {
			c.reject(ctx, "draft", index, err)
		}
	})
}

// AppendTranscript adds a recognized speech segment to the draft.
func (c *Controller) AppendTranscript(ctx context.Context, index int, segment string) error {
	return c.send(ctx, func(ctx context.Context) {
		out, err := c.machine.AppendTranscript(index, segment)
		if err != nil {
			c.reject(ctx, "transcript", index, err)
			return
		}
		c.apply(ctx, out)
	})
}

// FocusLost reports that the candidate's window lost focus.
func (c *Controller) FocusLost(ctx context.Context) error {
	return c.send(ctx, func(ctx context.Context) {
		c.focus.Emit()
		c.apply(ctx, c.machine.Collect())
	})
}

// Cancel abandons the current session without submitting.
func (c *Controller) Cancel(ctx context.Context) error {
	return c.send(ctx, func(ctx context.Context) {
		c.apply(ctx, c.machine.Cancel())
	})
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	result := make(chan Snapshot, 1)
	if err := c.send(ctx, func(context.Context) { result <- c.machine.Snapshot() }); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-result:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Controller) send(ctx context.Context, cmd command) error {
	select {
	case c.cmds <- cmd:
		return nil
	case <-c.done:
		return ErrControllerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) newMachine() *Machine {
	m := NewMachine(c.settings, c.userID, c.scorer, c.focus)
	m.now = c.deps.Clock.Now
	return m
}

func (c *Controller) start(ctx context.Context) {
	if c.machine.Status() == StatusInProgress {
		c.log.Debug().Msg("Start ignored, session already in progress")
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	questions, err := c.deps.Questions.FetchQuestions(fetchCtx, c.settings.Kind)
	cancel()
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to fetch interview questions")
		c.emitError(ctx, "NO_QUESTIONS", "questions could not be loaded")
		return
	}

	m := c.newMachine()
	out, err := m.Start(questions)
	if err != nil {
		c.log.Warn().Err(err).Int("questions", len(questions)).Msg("Session not started")
		c.emitError(ctx, "NO_QUESTIONS", "no questions are available for this interview")
		return
	}
	c.machine = m
	c.log.Info().
		Str("session_id", m.Snapshot().SessionID.String()).
		Int("questions", len(questions)).
		Msg("Session started")
	c.apply(ctx, out)
}

// reject handles an input the machine refused. Stale and out-of-session
// inputs are dropped silently: they race with timer advances.
func (c *Controller) reject(ctx context.Context, op string, index int, err error) {
	switch {
	case errors.Is(err, ErrEmptyAnswer):
		c.emitError(ctx, "EMPTY_ANSWER", "answer cannot be empty")
	case errors.Is(err, ErrStaleQuestion),
		errors.Is(err, ErrNotInProgress),
		errors.Is(err, ErrSessionFinished):
		c.log.Debug().Err(err).Str("op", op).Int("index", index).Msg("Input dropped")
	default:
		c.log.Warn().Err(err).Str("op", op).Int("index", index).Msg("Input rejected")
		c.emitError(ctx, "INTERNAL_ERROR", "input could not be processed")
	}
}

func (c *Controller) apply(ctx context.Context, out Outcome) {
	if out.restartTimer {
		c.resetTicker()
	}
	for _, e := range out.Events {
		c.emit(ctx, e)
	}
	for i := range out.Strikes {
		c.reportStrike(out.Strikes[i])
	}
	for i := range out.Attempts {
		c.recordAttempt(out.Attempts[i])
	}
	if out.Submission != nil {
		c.deliver(out.Submission)
	}
}

func (c *Controller) emit(ctx context.Context, e Event) {
	select {
	case c.events <- e:
	case <-ctx.Done():
	case <-c.done:
	}
}

func (c *Controller) emitError(ctx context.Context, code, message string) {
	c.emit(ctx, Event{Type: EventError, Data: ErrorPayload{Code: code, Message: message}})
}

// deliver hands the submission to the sink exactly once. It runs detached
// from the session context so a dropped connection cannot lose it.
func (c *Controller) deliver(sub *model.InterviewSubmission) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		log := c.log.With().
			Str("submission_id", sub.ID.String()).
			Str("reason", string(sub.Reason)).
			Logger()

		if err := c.deps.Submissions.SubmitResponses(ctx, sub); err != nil {
			log.Error().Err(err).Int("responses", len(sub.Responses)).Msg("Failed to deliver submission")
			c.emit(ctx, Event{Type: EventSubmitFailed, Data: SubmissionPayload{
				SubmissionID: sub.ID.String(),
				Error:        "submission could not be saved",
			}})
			return
		}

		log.Info().Int("responses", len(sub.Responses)).Float64("score", sub.Summary.Score).Msg("Submission delivered")
		c.emit(ctx, Event{Type: EventSubmitted, Data: SubmissionPayload{SubmissionID: sub.ID.String()}})
	}()
}

func (c *Controller) reportStrike(strike model.IntegrityStrike) {
	if c.deps.Strikes == nil {
		return
	}
	c.background("strike", func(ctx context.Context) error {
		return c.deps.Strikes.ReportStrike(ctx, &strike)
	})
}

func (c *Controller) recordAttempt(attempt model.PracticeAttempt) {
	if c.deps.Progress == nil {
		return
	}
	c.background("practice_attempt", func(ctx context.Context) error {
		return c.deps.Progress.RecordPracticeAttempt(ctx, &attempt)
	})
}

// background runs a best-effort report; failures are logged and never
// affect the session.
func (c *Controller) background(what string, fn func(ctx context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.log.Warn().Err(err).Str("report", what).Msg("Best-effort report failed")
		}
	}()
}

func (c *Controller) resetTicker() {
	c.stopTicker()
	if !c.machine.Snapshot().Timer.Running {
		return
	}
	c.ticker = c.deps.Clock.NewTicker(time.Second)
	c.tickC = c.ticker.C()
}

func (c *Controller) stopTicker() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
	c.tickC = nil
}
