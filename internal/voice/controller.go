// Package voice содержит контроллер голосового интервью: озвучивание вопроса,
// захват ответа через распознавание речи и пошаговую фиксацию ответов.
// Сам контроллер ничего не хранит, ответы уходят в AnswerRecorder.
package voice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

const (
	updatesBuffer = 16
	// drainTimeout сколько StopCapture ждет закрытия потока событий
	drainTimeout = 2 * time.Second
)

// State снимок состояния контроллера
type State struct {
	SessionID  string `json:"session_id"`
	Index      int    `json:"index"`
	Total      int    `json:"total"`
	Question   string `json:"question,omitempty"`
	Speaking   bool   `json:"speaking"`
	Capturing  bool   `json:"capturing"`
	Interim    string `json:"interim,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Finished   bool   `json:"finished"`
	LastError  error  `json:"-"`
}

// Controller ведет одно голосовое интервью. Методы безопасны для
// конкурентного вызова; Advance выполняются строго по очереди.
type Controller struct {
	sessionID string
	userID    string
	questions []string

	recognizer Recognizer
	synth      Synthesizer
	recorder   AnswerRecorder
	log        *slog.Logger

	advanceMu sync.Mutex
	captureMu sync.Mutex

	mu         sync.Mutex
	index      int
	speaking   bool
	speechGen  uint64
	capturing  bool
	captureGen uint64
	consumed   chan struct{}
	buffer     []string
	interim    string
	finished   bool
	lastErr    error
	completed  *models.Session
	closed     bool
	done       chan struct{}
	updates    chan State
}

// NewController создает контроллер для сессии in_progress. Текущий вопрос
// равен числу уже записанных ответов, поэтому переподключение продолжает
// интервью с места обрыва.
func NewController(session *models.Session, recognizer Recognizer, synth Synthesizer,
	recorder AnswerRecorder, log *slog.Logger) (*Controller, error) {
	const op = "voice.NewController"

	if session.Status != models.SessionInProgress {
		return nil, fmt.Errorf("%s: session is %s: %w", op, session.Status, ErrInterviewFinished)
	}
	if len(session.Questions) == 0 {
		return nil, fmt.Errorf("%s: session has no questions: %w", op, models.ErrValidation)
	}

	index := len(session.Answers)
	if index > len(session.Questions) {
		index = len(session.Questions)
	}

	return &Controller{
		sessionID:  session.ID,
		userID:     session.UserID,
		questions:  append([]string(nil), session.Questions...),
		recognizer: recognizer,
		synth:      synth,
		recorder:   recorder,
		log:        log.With(slog.String("session_id", session.ID)),
		index:      index,
		done:       make(chan struct{}),
		updates:    make(chan State, updatesBuffer),
	}, nil
}

// PromptQuestion озвучивает text. Пока идет озвучивание или захват,
// новый запуск отклоняется.
func (c *Controller) PromptQuestion(ctx context.Context, text string) error {
	const op = "voice.PromptQuestion"

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.finished || c.closed:
		return fmt.Errorf("%s: %w", op, ErrInterviewFinished)
	case c.capturing:
		return fmt.Errorf("%s: %w", op, ErrCaptureInProgress)
	case c.speaking:
		return fmt.Errorf("%s: %w", op, ErrSynthesisBusy)
	}

	spoken, err := c.synth.Speak(ctx, text)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSynthesis, err)
	}

	c.speaking = true
	c.speechGen++
	go c.watchSpeech(spoken, c.speechGen)
	c.publishLocked()
	return nil
}

// PromptCurrent озвучивает текущий вопрос
func (c *Controller) PromptCurrent(ctx context.Context) error {
	c.mu.Lock()
	if c.index >= len(c.questions) {
		c.mu.Unlock()
		return fmt.Errorf("voice.PromptCurrent: %w", ErrInterviewFinished)
	}
	question := c.questions[c.index]
	c.mu.Unlock()

	return c.PromptQuestion(ctx, question)
}

func (c *Controller) watchSpeech(spoken <-chan struct{}, gen uint64) {
	select {
	case <-spoken:
	case <-c.done:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.speechGen && c.speaking {
		c.speaking = false
		c.publishLocked()
	}
}

// StartCapture запускает распознавание. Незаконченное озвучивание отменяется.
func (c *Controller) StartCapture(ctx context.Context) error {
	const op = "voice.StartCapture"

	c.captureMu.Lock()
	defer c.captureMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.finished || c.closed:
		return fmt.Errorf("%s: %w", op, ErrInterviewFinished)
	case c.capturing:
		return fmt.Errorf("%s: %w", op, ErrCaptureInProgress)
	case !c.recognizer.Available():
		return fmt.Errorf("%s: %w", op, ErrCaptureUnavailable)
	}

	c.cancelSpeechLocked()

	events, err := c.recognizer.Start(ctx)
	if err != nil {
		c.publishLocked()
		return fmt.Errorf("%s: %w: %w", op, ErrCaptureDevice, err)
	}

	c.capturing = true
	c.captureGen++
	c.buffer = nil
	c.interim = ""
	c.lastErr = nil
	c.consumed = make(chan struct{})
	go c.consume(events, c.captureGen, c.consumed)
	c.publishLocked()
	return nil
}

// consume читает события одного захвата до закрытия канала.
// События устаревшего захвата отбрасываются.
func (c *Controller) consume(events <-chan RecognitionEvent, gen uint64, done chan struct{}) {
	defer close(done)
	for ev := range events {
		c.apply(ev, gen)
	}
}

func (c *Controller) apply(ev RecognitionEvent, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.captureGen {
		return
	}

	ended := false
	switch ev.Kind {
	case EventFinalSegment:
		if text := strings.TrimSpace(ev.Text); text != "" {
			c.buffer = append(c.buffer, text)
		}
		c.interim = ""
	case EventInterimSegment:
		c.interim = strings.TrimSpace(ev.Text)
	case EventError:
		cause := ev.Err
		if cause == nil {
			cause = errors.New(cmp.Or(ev.Text, "recognition error"))
		}
		c.lastErr = fmt.Errorf("%w: %w", ErrCaptureDevice, cause)
		c.log.Warn("speech recognition failed", sl.Err(cause))
		ended = true
	case EventEnded:
		ended = true
	default:
		return
	}

	if ended {
		c.stopCaptureLocked()
	}
	c.publishLocked()
}

// StopCapture завершает захват и возвращает накопленный финальный текст.
// Сегменты, пришедшие до остановки, успевают попасть в текст. Буфер
// сбрасывается; пустая строка допустима.
func (c *Controller) StopCapture() string {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()

	c.mu.Lock()
	consumed := c.releaseCaptureLocked()
	c.mu.Unlock()

	if consumed != nil {
		select {
		case <-consumed:
		case <-time.After(drainTimeout):
			c.log.Warn("recognizer did not close event stream")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	transcript := strings.Join(c.buffer, " ")
	c.captureGen++
	c.consumed = nil
	c.interim = ""
	c.buffer = nil
	c.publishLocked()
	return transcript
}

// Advance фиксирует ответ на текущий вопрос и переходит к следующему.
// Активный захват останавливается, его буфер отбрасывается: answerText
// окончателен. Пустой ответ означает пропуск. Ответ на последний вопрос
// завершает сессию. При любой ошибке текущий вопрос не меняется.
func (c *Controller) Advance(ctx context.Context, answerText string) (bool, error) {
	const op = "voice.Advance"

	c.advanceMu.Lock()
	defer c.advanceMu.Unlock()

	c.captureMu.Lock()
	c.mu.Lock()
	if c.finished || c.closed {
		c.mu.Unlock()
		c.captureMu.Unlock()
		return false, fmt.Errorf("%s: %w", op, ErrInterviewFinished)
	}
	c.stopCaptureLocked()
	c.buffer = nil
	c.cancelSpeechLocked()
	index, total := c.index, len(c.questions)
	c.publishLocked()
	c.mu.Unlock()
	c.captureMu.Unlock()

	text := strings.TrimSpace(answerText)
	if index < total {
		if err := c.recorder.RecordAnswer(ctx, c.sessionID, c.userID, index, text); err != nil {
			return false, c.fail(fmt.Errorf("%s: record answer %d: %w", op, index, err))
		}
	}

	if index+1 < total {
		c.mu.Lock()
		c.index = index + 1
		c.lastErr = nil
		c.publishLocked()
		c.mu.Unlock()
		return false, nil
	}

	// последний ответ уже записан; повтор Advance после сбоя Complete
	// повторно отправит тот же ответ, что хранилище примет как no-op
	session, err := c.recorder.Complete(ctx, c.sessionID, c.userID, nil)
	if err != nil {
		return false, c.fail(fmt.Errorf("%s: complete: %w", op, err))
	}

	c.mu.Lock()
	c.index = total
	c.finished = true
	c.completed = session
	c.lastErr = nil
	c.publishLocked()
	c.mu.Unlock()

	c.log.Info("voice interview completed")
	return true, nil
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.publishLocked()
	c.mu.Unlock()
	return err
}

// Completed завершенная сессия после последнего Advance
func (c *Controller) Completed() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// State снимок текущего состояния
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Updates канал снимков состояния. Медленный читатель теряет
// промежуточные снимки, последний снимок сохраняется.
func (c *Controller) Updates() <-chan State {
	return c.updates
}

// Close останавливает захват и озвучивание и закрывает канал Updates
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopCaptureLocked()
	c.cancelSpeechLocked()
	c.closed = true
	close(c.done)
	close(c.updates)
	c.mu.Unlock()
}

// stopCaptureLocked останавливает захват и отбрасывает еще не
// примененные события. Буфер не трогает.
func (c *Controller) stopCaptureLocked() {
	c.captureGen++
	c.releaseCaptureLocked()
}

// releaseCaptureLocked освобождает распознаватель под мьютексом, чтобы остановка
// старого захвата не пересеклась с запуском нового. Поколение не меняется:
// события, уже лежащие в канале, еще применяются. Возвращает канал,
// закрывающийся после разбора потока событий.
func (c *Controller) releaseCaptureLocked() <-chan struct{} {
	c.interim = ""
	if c.capturing {
		c.capturing = false
		if err := c.recognizer.Stop(); err != nil {
			c.log.Warn("failed to stop recognizer", sl.Err(err))
		}
	}
	return c.consumed
}

func (c *Controller) cancelSpeechLocked() {
	if !c.speaking {
		return
	}
	c.speaking = false
	c.speechGen++
	c.synth.Cancel()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		SessionID:  c.sessionID,
		Index:      c.index,
		Total:      len(c.questions),
		Speaking:   c.speaking,
		Capturing:  c.capturing,
		Interim:    c.interim,
		Transcript: strings.Join(c.buffer, " "),
		Finished:   c.finished,
		LastError:  c.lastErr,
	}
	if c.index < len(c.questions) {
		s.Question = c.questions[c.index]
	}
	return s
}

func (c *Controller) publishLocked() {
	if c.closed {
		return
	}
	s := c.snapshotLocked()
	select {
	case c.updates <- s:
		return
	default:
	}
	// вытесняем самый старый снимок
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- s:
	default:
	}
}
