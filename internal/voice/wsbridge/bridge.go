package wsbridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
	"github.com/magabrotheeeer/interview-coach/internal/voice"
)

// Bridge связывает одно websocket-соединение с контроллером интервью
type Bridge struct {
	conn  *Conn
	rec   *Recognizer
	synth *Synthesizer
	log   *slog.Logger
}

// New создает мост. Распознаватель и синтезатор отдаются контроллеру
// до вызова Run.
func New(ws *websocket.Conn, log *slog.Logger) *Bridge {
	conn := NewConn(ws, log)
	return &Bridge{
		conn:  conn,
		rec:   NewRecognizer(conn, log),
		synth: NewSynthesizer(conn, log),
		log:   log,
	}
}

// Recognizer распознаватель клиента
func (b *Bridge) Recognizer() *Recognizer { return b.rec }

// Synthesizer синтезатор клиента
func (b *Bridge) Synthesizer() *Synthesizer { return b.synth }

// Run обслуживает соединение до его закрытия. Команды клиента выполняются
// по очереди в горутине чтения; снимки состояния уходят кадрами state.
func (b *Bridge) Run(ctx context.Context, ctrl *voice.Controller) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.conn.WritePump()
	}()
	go func() {
		defer wg.Done()
		for st := range ctrl.Updates() {
			logSendErr(b.log, TypeState, b.conn.Send(TypeState, st))
		}
	}()

	err := b.conn.ReadPump(func(msg Message) {
		b.handle(ctx, ctrl, msg)
	})

	ctrl.Close()
	b.rec.Close()
	b.conn.Close()
	wg.Wait()
	return err
}

func (b *Bridge) handle(ctx context.Context, ctrl *voice.Controller, msg Message) {
	log := b.log.With(slog.String("frame", msg.Type))

	var err error
	switch msg.Type {
	case TypeHello:
		var p HelloPayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		b.rec.SetAvailable(p.Recognition)
		b.synth.SetAvailable(p.Synthesis)
		log.Info("voice client connected",
			slog.Bool("recognition", p.Recognition),
			slog.Bool("synthesis", p.Synthesis))
		logSendErr(b.log, TypeState, b.conn.Send(TypeState, ctrl.State()))
		err = b.promptCurrent(ctx, ctrl)

	case TypePrompt:
		var p TextPayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		if p.Text == "" {
			err = ctrl.PromptCurrent(ctx)
		} else {
			err = ctrl.PromptQuestion(ctx, p.Text)
		}

	case TypeStartCapture:
		err = ctrl.StartCapture(ctx)

	case TypeStopCapture:
		text := ctrl.StopCapture()
		err = b.conn.Send(TypeAnswer, TextPayload{Text: text})

	case TypeAdvance:
		var p TextPayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		var done bool
		done, err = ctrl.Advance(ctx, p.Text)
		if err != nil {
			break
		}
		if done {
			err = b.conn.Send(TypeCompleted, CompletedPayload{Session: ctrl.Completed()})
			break
		}
		err = b.promptCurrent(ctx, ctrl)

	case TypeTranscript:
		var p TranscriptPayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		kind := voice.EventInterimSegment
		if p.Final {
			kind = voice.EventFinalSegment
		}
		b.rec.Deliver(voice.RecognitionEvent{Kind: kind, Text: p.Text})

	case TypeRecognitionError:
		var p RecognitionErrorPayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		b.rec.Deliver(voice.RecognitionEvent{Kind: voice.EventError, Text: p.Reason})

	case TypeRecognitionEnded:
		b.rec.Deliver(voice.RecognitionEvent{Kind: voice.EventEnded})

	case TypeSpeechEnded:
		b.synth.SpeechEnded()

	default:
		err = errUnknownFrame
	}

	if err != nil {
		log.Warn("voice command failed", sl.Err(err))
		logSendErr(b.log, TypeError, b.conn.Send(TypeError, ErrorPayload{Message: clientMessage(err)}))
	}
}

// promptCurrent озвучивает текущий вопрос, если он есть
func (b *Bridge) promptCurrent(ctx context.Context, ctrl *voice.Controller) error {
	if st := ctrl.State(); st.Index >= st.Total {
		return nil
	}
	return ctrl.PromptCurrent(ctx)
}

var errUnknownFrame = errors.New("unknown frame type")

// clientMessage текст ошибки без внутренних подробностей
func clientMessage(err error) string {
	switch {
	case errors.Is(err, errUnknownFrame):
		return errUnknownFrame.Error()
	case errors.Is(err, ErrMalformedFrame):
		return ErrMalformedFrame.Error()
	case errors.Is(err, voice.ErrInterviewFinished):
		return voice.ErrInterviewFinished.Error()
	case errors.Is(err, voice.ErrCaptureInProgress):
		return voice.ErrCaptureInProgress.Error()
	case errors.Is(err, voice.ErrCaptureUnavailable):
		return voice.ErrCaptureUnavailable.Error()
	case errors.Is(err, voice.ErrCaptureDevice):
		return voice.ErrCaptureDevice.Error()
	case errors.Is(err, voice.ErrSynthesisBusy):
		return voice.ErrSynthesisBusy.Error()
	case errors.Is(err, voice.ErrSynthesis):
		return voice.ErrSynthesis.Error()
	case errors.Is(err, models.ErrValidation):
		return "invalid answer"
	case errors.Is(err, models.ErrInvalidState):
		return "session is not in progress"
	case errors.Is(err, models.ErrNotFound):
		return "session not found"
	default:
		return "internal error"
	}
}
