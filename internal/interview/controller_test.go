package interview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/prepwise-backend/internal/model"
)

const waitTimeout = 2 * time.Second

type fakeTicker struct {
	c chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               {}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeClock) Now() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func (f *fakeClock) NewTicker(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeClock) tick(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	require.NotEmpty(t, f.tickers, "no ticker was created")
	current := f.tickers[len(f.tickers)-1]
	f.mu.Unlock()

	select {
	case current.c <- time.Now():
	case <-time.After(waitTimeout):
		t.Fatal("ticker was not being read")
	}
}

type fakeQuestions struct {
	qs  []model.InterviewQuestion
	err error
}

func (f *fakeQuestions) FetchQuestions(context.Context, model.InterviewKind) ([]model.InterviewQuestion, error) {
	return f.qs, f.err
}

type fakeSink struct {
	mu      sync.Mutex
	subs    []*model.InterviewSubmission
	err     error
	release chan struct{}
}

func (f *fakeSink) SubmitResponses(ctx context.Context, sub *model.InterviewSubmission) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeSink) submissions() []*model.InterviewSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.InterviewSubmission(nil), f.subs...)
}

type fakeReports struct {
	mu       sync.Mutex
	strikes  []model.IntegrityStrike
	attempts []model.PracticeAttempt
}

func (f *fakeReports) ReportStrike(_ context.Context, s *model.IntegrityStrike) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strikes = append(f.strikes, *s)
	return nil
}

func (f *fakeReports) RecordPracticeAttempt(_ context.Context, a *model.PracticeAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, *a)
	return errors.New("progress store unavailable")
}

func (f *fakeReports) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.strikes), len(f.attempts)
}

type harness struct {
	ctrl    *Controller
	clock   *fakeClock
	sink    *fakeSink
	reports *fakeReports
	cancel  context.CancelFunc
	stopped chan struct{}
}

func newHarness(t *testing.T, settings Settings, questions *fakeQuestions, sink *fakeSink) *harness {
	t.Helper()
	h := &harness{
		clock:   &fakeClock{},
		sink:    sink,
		reports: &fakeReports{},
		stopped: make(chan struct{}),
	}
	h.ctrl = NewController(42, settings, nil, Deps{
		Questions:   questions,
		Submissions: sink,
		Progress:    h.reports,
		Strikes:     h.reports,
		Clock:       h.clock,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.ctrl.Run(ctx)
		close(h.stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.stopped
	})
	return h
}

// next reads events until one of type want arrives.
func (h *harness) next(t *testing.T, want EventType) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case e, ok := <-h.ctrl.Events():
			require.True(t, ok, "events closed while waiting for %s", want)
			if e.Type == want {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

// sync waits until every previously sent command has been processed.
func (h *harness) sync(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	snap, err := h.ctrl.Snapshot(ctx)
	require.NoError(t, err)
	return snap
}

func TestControllerCompletesAndDelivers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(2)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)

	require.NoError(t, h.ctrl.Submit(ctx, 0, "first answer"))
	q := h.next(t, EventQuestion)
	assert.Equal(t, 1, q.Data.(QuestionPayload).Index)

	require.NoError(t, h.ctrl.Submit(ctx, 1, "second answer"))
	finished := h.next(t, EventFinished)
	assert.Equal(t, model.FinishReasonCompleted, finished.Data.(FinishedPayload).Reason)

	submitted := h.next(t, EventSubmitted)
	subs := h.sink.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, subs[0].ID.String(), submitted.Data.(SubmissionPayload).SubmissionID)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), subs[0].FinishedAt)
}

func TestControllerDuplicateStartIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(3)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)
	first := h.sync(t)

	require.NoError(t, h.ctrl.Start(ctx))
	second := h.sync(t)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Empty(t, h.ctrl.Events())
}

func TestControllerStartAfterFinishBeginsNewSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(1)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)
	first := h.sync(t)
	require.NoError(t, h.ctrl.Submit(ctx, 0, "done"))
	h.next(t, EventFinished)
	h.next(t, EventSubmitted)

	require.NoError(t, h.ctrl.Start(ctx))
	q := h.next(t, EventQuestion)
	assert.Equal(t, 0, q.Data.(QuestionPayload).Index)

	second := h.sync(t)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, StatusInProgress, second.Status)
	assert.Zero(t, second.Responses)
	assert.Len(t, h.sink.submissions(), 1)
}

func TestControllerTimerDrivesSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(2), &fakeQuestions{qs: testQuestions(1)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)
	require.NoError(t, h.ctrl.SetDraft(ctx, 0, "running out of time"))
	h.sync(t)

	h.clock.tick(t)
	tick := h.next(t, EventTick)
	assert.Equal(t, TickPayload{Index: 0, RemainingSeconds: 1}, tick.Data)

	h.clock.tick(t)
	finished := h.next(t, EventFinished)
	assert.Equal(t, model.FinishReasonTimerExpired, finished.Data.(FinishedPayload).Reason)
	h.next(t, EventSubmitted)

	subs := h.sink.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "running out of time", subs[0].Responses[0].Answer)
}

func TestControllerIntegrityBreach(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(3)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)

	for i := 1; i <= 2; i++ {
		require.NoError(t, h.ctrl.FocusLost(ctx))
		w := h.next(t, EventWarning)
		assert.Equal(t, WarningPayload{StrikeCount: i, Threshold: 3}, w.Data)
	}
	require.NoError(t, h.ctrl.FocusLost(ctx))
	finished := h.next(t, EventFinished)
	assert.Equal(t, model.FinishReasonIntegrityBreach, finished.Data.(FinishedPayload).Reason)
	assert.Equal(t, 3, finished.Data.(FinishedPayload).StrikeCount)
	h.next(t, EventSubmitted)

	require.NoError(t, h.ctrl.FocusLost(ctx))
	snap := h.sync(t)
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Equal(t, 3, snap.Integrity.StrikeCount)

	assert.Eventually(t, func() bool {
		strikes, _ := h.reports.counts()
		return strikes == 3
	}, waitTimeout, 10*time.Millisecond)
	assert.Len(t, h.sink.submissions(), 1)
}

func TestControllerFetchFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{err: errors.New("redis down")}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	e := h.next(t, EventError)

	assert.Equal(t, "NO_QUESTIONS", e.Data.(ErrorPayload).Code)
	assert.Equal(t, StatusNotStarted, h.sync(t).Status)
}

func TestControllerEmptyQuestionSet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	e := h.next(t, EventError)

	assert.Equal(t, "NO_QUESTIONS", e.Data.(ErrorPayload).Code)
}

func TestControllerEmptyAnswer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(2)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)

	require.NoError(t, h.ctrl.Submit(ctx, 0, "   "))
	e := h.next(t, EventError)
	assert.Equal(t, "EMPTY_ANSWER", e.Data.(ErrorPayload).Code)

	require.NoError(t, h.ctrl.Submit(ctx, 1, "stale"))
	snap := h.sync(t)
	assert.Equal(t, 0, snap.Index)
	assert.Zero(t, snap.Responses)
}

func TestControllerSubmitFailure(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{err: errors.New("insert failed")}
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(1)}, sink)

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)
	require.NoError(t, h.ctrl.Submit(ctx, 0, "answer"))

	failed := h.next(t, EventSubmitFailed)
	assert.NotEmpty(t, failed.Data.(SubmissionPayload).Error)
	assert.Empty(t, sink.submissions())
}

func TestControllerPracticeAttemptFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, hrSettings(), &fakeQuestions{qs: testQuestions(2)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)
	require.NoError(t, h.ctrl.AppendTranscript(ctx, 0, "I resolved it by talking to the team directly"))
	tr := h.next(t, EventTranscript)
	assert.Equal(t, 100, tr.Data.(TranscriptPayload).Confidence)

	require.NoError(t, h.ctrl.Submit(ctx, 0, "I resolved it by talking to the team directly"))
	h.next(t, EventQuestion)

	assert.Eventually(t, func() bool {
		_, attempts := h.reports.counts()
		return attempts == 1
	}, waitTimeout, 10*time.Millisecond)
	assert.Equal(t, StatusInProgress, h.sync(t).Status)
}

func TestControllerCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(3)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)
	require.NoError(t, h.ctrl.Submit(ctx, 0, "first"))
	h.next(t, EventQuestion)

	require.NoError(t, h.ctrl.Cancel(ctx))
	h.next(t, EventCancelled)

	snap := h.sync(t)
	assert.Equal(t, StatusNotStarted, snap.Status)
	assert.Zero(t, snap.Index)
	assert.Zero(t, snap.Responses)
	assert.Empty(t, h.sink.submissions())

	require.NoError(t, h.ctrl.Start(ctx))
	q := h.next(t, EventQuestion)
	assert.Equal(t, 0, q.Data.(QuestionPayload).Index)
}

func TestControllerShutdownCancelsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(3)}, &fakeSink{})

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)

	h.cancel()
	select {
	case <-h.stopped:
	case <-time.After(waitTimeout):
		t.Fatal("controller did not stop")
	}

	for range h.ctrl.Events() {
	}
	assert.Empty(t, h.sink.submissions())
	assert.ErrorIs(t, h.ctrl.Submit(ctx, 0, "late"), ErrControllerClosed)
}

func TestControllerShutdownWaitsForDelivery(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{release: make(chan struct{})}
	h := newHarness(t, mockSettings(180), &fakeQuestions{qs: testQuestions(1)}, sink)

	require.NoError(t, h.ctrl.Start(ctx))
	h.next(t, EventQuestion)
	require.NoError(t, h.ctrl.Submit(ctx, 0, "final"))
	h.next(t, EventFinished)

	h.cancel()
	select {
	case <-h.stopped:
		t.Fatal("controller stopped before delivery finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(sink.release)
	select {
	case <-h.stopped:
	case <-time.After(waitTimeout):
		t.Fatal("controller did not stop")
	}
	assert.Len(t, sink.submissions(), 1)
}
