package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

const (
	testSessionID = "6f1d2b6e-5c3a-4a7e-9b1f-2d3c4e5f6a7b"
	testUserID    = "user-1"
	waitFor       = time.Second
	tick          = 5 * time.Millisecond
)

type fakeRecognizer struct {
	mu        sync.Mutex
	available bool
	startErr  error
	events    chan RecognitionEvent
	starts    int
	stops     int
}

func (r *fakeRecognizer) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available
}

func (r *fakeRecognizer) Start(_ context.Context) (<-chan RecognitionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.starts++
	r.events = make(chan RecognitionEvent, 16)
	return r.events, nil
}

func (r *fakeRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	if r.events != nil {
		close(r.events)
		r.events = nil
	}
	return nil
}

func (r *fakeRecognizer) emit(ev RecognitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events != nil {
		r.events <- ev
	}
}

func (r *fakeRecognizer) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

type fakeSynth struct {
	mu       sync.Mutex
	speakErr error
	current  chan struct{}
	texts    []string
	cancels  int
}

func (s *fakeSynth) Speak(_ context.Context, text string) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speakErr != nil {
		return nil, s.speakErr
	}
	s.texts = append(s.texts, text)
	s.current = make(chan struct{})
	return s.current, nil
}

func (s *fakeSynth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
	s.finishLocked()
}

func (s *fakeSynth) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked()
}

func (s *fakeSynth) finishLocked() {
	if s.current != nil {
		close(s.current)
		s.current = nil
	}
}

type RecorderMock struct{ mock.Mock }

func (m *RecorderMock) RecordAnswer(ctx context.Context, sessionID, userID string, index int, text string) error {
	return m.Called(ctx, sessionID, userID, index, text).Error(0)
}

func (m *RecorderMock) Complete(ctx context.Context, sessionID, userID string, answers []string) (*models.Session, error) {
	args := m.Called(ctx, sessionID, userID, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newSession(answers ...string) *models.Session {
	if answers == nil {
		answers = []string{}
	}
	return &models.Session{
		ID:        testSessionID,
		UserID:    testUserID,
		Questions: []string{"Q1", "Q2", "Q3"},
		Answers:   answers,
		Status:    models.SessionInProgress,
	}
}

type harness struct {
	c        *Controller
	rec      *fakeRecognizer
	synth    *fakeSynth
	recorder *RecorderMock
}

func newHarness(t *testing.T, session *models.Session) *harness {
	t.Helper()
	h := &harness{
		rec:      &fakeRecognizer{available: true},
		synth:    &fakeSynth{},
		recorder: new(RecorderMock),
	}
	c, err := NewController(session, h.rec, h.synth, h.recorder, newNoopLogger())
	require.NoError(t, err)
	h.c = c
	t.Cleanup(c.Close)
	return h
}

func TestNewController(t *testing.T) {
	t.Run("resumes at first unanswered question", func(t *testing.T) {
		h := newHarness(t, newSession("A1"))
		st := h.c.State()
		assert.Equal(t, 1, st.Index)
		assert.Equal(t, 3, st.Total)
		assert.Equal(t, "Q2", st.Question)
		assert.False(t, st.Finished)
	})

	for _, status := range []models.SessionStatus{models.SessionCompleted, models.SessionAbandoned} {
		t.Run("rejects "+string(status), func(t *testing.T) {
			s := newSession()
			s.Status = status
			_, err := NewController(s, &fakeRecognizer{}, &fakeSynth{}, new(RecorderMock), newNoopLogger())
			assert.ErrorIs(t, err, ErrInterviewFinished)
		})
	}
}

func TestController_PromptQuestion(t *testing.T) {
	h := newHarness(t, newSession())
	ctx := context.Background()

	require.NoError(t, h.c.PromptCurrent(ctx))
	assert.True(t, h.c.State().Speaking)
	assert.Equal(t, []string{"Q1"}, h.synth.texts)

	err := h.c.PromptQuestion(ctx, "again")
	assert.ErrorIs(t, err, ErrSynthesisBusy)

	h.synth.finish()
	assert.Eventually(t, func() bool { return !h.c.State().Speaking }, waitFor, tick)

	require.NoError(t, h.c.PromptQuestion(ctx, "again"))
}

func TestController_PromptQuestion_SynthesisFailure(t *testing.T) {
	h := newHarness(t, newSession())
	h.synth.speakErr = errors.New("no voices")

	err := h.c.PromptQuestion(context.Background(), "Q1")
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.False(t, h.c.State().Speaking)
}

func TestController_PromptWhileCapturing(t *testing.T) {
	h := newHarness(t, newSession())
	require.NoError(t, h.c.StartCapture(context.Background()))

	err := h.c.PromptQuestion(context.Background(), "Q1")
	assert.ErrorIs(t, err, ErrCaptureInProgress)
	assert.Empty(t, h.synth.texts)
}

func TestController_StartCapture(t *testing.T) {
	t.Run("unavailable recognizer", func(t *testing.T) {
		h := newHarness(t, newSession())
		h.rec.available = false
		assert.ErrorIs(t, h.c.StartCapture(context.Background()), ErrCaptureUnavailable)
		assert.False(t, h.c.State().Capturing)
	})

	t.Run("device failure", func(t *testing.T) {
		h := newHarness(t, newSession())
		h.rec.startErr = errors.New("microphone denied")
		err := h.c.StartCapture(context.Background())
		assert.ErrorIs(t, err, ErrCaptureDevice)
		assert.False(t, h.c.State().Capturing)
	})

	t.Run("second start is rejected", func(t *testing.T) {
		h := newHarness(t, newSession())
		require.NoError(t, h.c.StartCapture(context.Background()))
		err := h.c.StartCapture(context.Background())
		assert.ErrorIs(t, err, ErrCaptureInProgress)
		assert.ErrorIs(t, err, ErrCaptureUnavailable)
		assert.Equal(t, 1, h.rec.starts)
	})

	t.Run("cancels residual synthesis", func(t *testing.T) {
		h := newHarness(t, newSession())
		require.NoError(t, h.c.PromptCurrent(context.Background()))
		require.NoError(t, h.c.StartCapture(context.Background()))

		st := h.c.State()
		assert.False(t, st.Speaking)
		assert.True(t, st.Capturing)
		assert.Equal(t, 1, h.synth.cancels)
	})
}

func TestController_OnlyFinalSegmentsAreBuffered(t *testing.T) {
	h := newHarness(t, newSession())
	require.NoError(t, h.c.StartCapture(context.Background()))

	h.rec.emit(RecognitionEvent{Kind: EventInterimSegment, Text: "hel"})
	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: "hello world"})
	h.rec.emit(RecognitionEvent{Kind: EventInterimSegment, Text: "aga"})

	assert.Eventually(t, func() bool {
		st := h.c.State()
		return st.Transcript == "hello world" && st.Interim == "aga"
	}, waitFor, tick)

	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: " again "})
	assert.Eventually(t, func() bool {
		st := h.c.State()
		return st.Transcript == "hello world again" && st.Interim == ""
	}, waitFor, tick)

	assert.Equal(t, "hello world again", h.c.StopCapture())
	assert.False(t, h.c.State().Capturing)
	assert.Equal(t, 1, h.rec.stopCount())

	assert.Equal(t, "", h.c.StopCapture())
}

func TestController_RecognitionErrorKeepsBufferedFinals(t *testing.T) {
	h := newHarness(t, newSession())
	require.NoError(t, h.c.StartCapture(context.Background()))

	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: "partial answer"})
	h.rec.emit(RecognitionEvent{Kind: EventError, Err: errors.New("network")})

	assert.Eventually(t, func() bool { return !h.c.State().Capturing }, waitFor, tick)

	st := h.c.State()
	assert.ErrorIs(t, st.LastError, ErrCaptureDevice)
	assert.Equal(t, "partial answer", st.Transcript)
	assert.Equal(t, 1, h.rec.stopCount())

	assert.Equal(t, "partial answer", h.c.StopCapture())

	// после ошибки захват можно начать заново
	require.NoError(t, h.c.StartCapture(context.Background()))
	assert.NoError(t, h.c.State().LastError)
}

func TestController_RecognitionEndedStopsCapture(t *testing.T) {
	h := newHarness(t, newSession())
	require.NoError(t, h.c.StartCapture(context.Background()))

	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: "done"})
	h.rec.emit(RecognitionEvent{Kind: EventEnded})

	assert.Eventually(t, func() bool { return !h.c.State().Capturing }, waitFor, tick)
	assert.NoError(t, h.c.State().LastError)
	assert.Equal(t, "done", h.c.StopCapture())
}

func TestController_Advance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newSession())

	h.recorder.On("RecordAnswer", mock.Anything, testSessionID, testUserID, 0, "first answer").Return(nil).Once()
	done, err := h.c.Advance(ctx, "  first answer ")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, h.c.State().Index)
	assert.Equal(t, "Q2", h.c.State().Question)

	// пустой ответ это пропуск
	h.recorder.On("RecordAnswer", mock.Anything, testSessionID, testUserID, 1, "").Return(nil).Once()
	done, err = h.c.Advance(ctx, "   ")
	require.NoError(t, err)
	assert.False(t, done)

	completed := newSession("first answer", "", "third")
	completed.Status = models.SessionCompleted
	h.recorder.On("RecordAnswer", mock.Anything, testSessionID, testUserID, 2, "third").Return(nil).Once()
	h.recorder.On("Complete", mock.Anything, testSessionID, testUserID, []string(nil)).Return(completed, nil).Once()

	done, err = h.c.Advance(ctx, "third")
	require.NoError(t, err)
	assert.True(t, done)

	st := h.c.State()
	assert.True(t, st.Finished)
	assert.Equal(t, 3, st.Index)
	assert.Equal(t, completed, h.c.Completed())

	_, err = h.c.Advance(ctx, "more")
	assert.ErrorIs(t, err, ErrInterviewFinished)
	assert.ErrorIs(t, h.c.PromptCurrent(ctx), ErrInterviewFinished)
	assert.ErrorIs(t, h.c.StartCapture(ctx), ErrInterviewFinished)

	h.recorder.AssertExpectations(t)
}

func TestController_AdvanceStopsCaptureAndDiscardsBuffer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newSession())
	require.NoError(t, h.c.StartCapture(ctx))
	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: "captured words"})
	assert.Eventually(t, func() bool { return h.c.State().Transcript == "captured words" }, waitFor, tick)

	h.recorder.On("RecordAnswer", mock.Anything, testSessionID, testUserID, 0, "edited answer").Return(nil).Once()
	_, err := h.c.Advance(ctx, "edited answer")
	require.NoError(t, err)

	st := h.c.State()
	assert.False(t, st.Capturing)
	assert.Empty(t, st.Transcript)
	assert.Equal(t, 1, h.rec.stopCount())
	assert.Equal(t, "", h.c.StopCapture())
	h.recorder.AssertExpectations(t)
}

func TestController_AdvanceFailureKeepsIndex(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newSession("A1"))

	h.recorder.On("RecordAnswer", mock.Anything, testSessionID, testUserID, 1, "A2").
		Return(models.ErrValidation).Once()

	done, err := h.c.Advance(ctx, "A2")
	assert.False(t, done)
	assert.ErrorIs(t, err, models.ErrValidation)

	st := h.c.State()
	assert.Equal(t, 1, st.Index)
	assert.ErrorIs(t, st.LastError, models.ErrValidation)

	h.recorder.On("RecordAnswer", mock.Anything, testSessionID, testUserID, 1, "A2").Return(nil).Once()
	_, err = h.c.Advance(ctx, "A2")
	require.NoError(t, err)
	assert.Equal(t, 2, h.c.State().Index)
	assert.NoError(t, h.c.State().LastError)
}

func TestController_CompleteFailureCanBeRetried(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newSession("A1", "A2"))

	completed := newSession("A1", "A2", "A3")
	completed.Status = models.SessionCompleted

	h.recorder.On("RecordAnswer", mock.Anything, testSessionID, testUserID, 2, "A3").Return(nil).Twice()
	h.recorder.On("Complete", mock.Anything, testSessionID, testUserID, []string(nil)).
		Return(nil, errors.New("db down")).Once()
	h.recorder.On("Complete", mock.Anything, testSessionID, testUserID, []string(nil)).
		Return(completed, nil).Once()

	done, err := h.c.Advance(ctx, "A3")
	require.Error(t, err)
	assert.False(t, done)
	assert.Equal(t, 2, h.c.State().Index)
	assert.False(t, h.c.State().Finished)

	done, err = h.c.Advance(ctx, "A3")
	require.NoError(t, err)
	assert.True(t, done)
	h.recorder.AssertExpectations(t)
}

func TestController_ResumeWithAllAnswersOnlyCompletes(t *testing.T) {
	h := newHarness(t, newSession("A1", "A2", "A3"))
	assert.Equal(t, 3, h.c.State().Index)
	assert.ErrorIs(t, h.c.PromptCurrent(context.Background()), ErrInterviewFinished)

	completed := newSession("A1", "A2", "A3")
	completed.Status = models.SessionCompleted
	h.recorder.On("Complete", mock.Anything, testSessionID, testUserID, []string(nil)).Return(completed, nil).Once()

	done, err := h.c.Advance(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, done)
	h.recorder.AssertNotCalled(t, "RecordAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestController_UpdatesNeverBlock(t *testing.T) {
	h := newHarness(t, newSession())
	ctx := context.Background()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 3*updatesBuffer; i++ {
			_ = h.c.StartCapture(ctx)
			h.c.StopCapture()
		}
	}()

	select {
	case <-finished:
	case <-time.After(waitFor):
		t.Fatal("state updates blocked the controller")
	}

	var last State
	for len(h.c.Updates()) > 0 {
		last = <-h.c.Updates()
	}
	assert.Equal(t, h.c.State(), last)
}

func TestController_Close(t *testing.T) {
	h := newHarness(t, newSession())
	require.NoError(t, h.c.StartCapture(context.Background()))

	h.c.Close()
	h.c.Close()

	assert.Equal(t, 1, h.rec.stopCount())
	for range h.c.Updates() {
	}
	_, err := h.c.Advance(context.Background(), "late")
	assert.ErrorIs(t, err, ErrInterviewFinished)
}

func TestController_StopCaptureDrainsQueuedSegments(t *testing.T) {
	h := newHarness(t, newSession())
	require.NoError(t, h.c.StartCapture(context.Background()))

	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: "one"})
	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: "two"})
	h.rec.emit(RecognitionEvent{Kind: EventFinalSegment, Text: "three"})

	assert.Equal(t, "one two three", h.c.StopCapture())
	assert.Empty(t, h.c.State().Transcript)
}
