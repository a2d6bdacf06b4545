package wsbridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/voice"
)

const eventsBuffer = 64

// Recognizer распознавание речи на стороне клиента. События приходят
// кадрами transcript, recognition_error и recognition_ended.
type Recognizer struct {
	sender Sender
	log    *slog.Logger

	mu        sync.Mutex
	available bool
	events    chan voice.RecognitionEvent
}

// NewRecognizer создает распознаватель; до кадра hello он недоступен
func NewRecognizer(sender Sender, log *slog.Logger) *Recognizer {
	return &Recognizer{sender: sender, log: log}
}

// SetAvailable фиксирует поддержку распознавания клиентом
func (r *Recognizer) SetAvailable(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available = ok
}

// Available сообщает, поддерживает ли клиент распознавание
func (r *Recognizer) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available
}

// Start просит клиента начать распознавание
func (r *Recognizer) Start(_ context.Context) (<-chan voice.RecognitionEvent, error) {
	const op = "wsbridge.Recognizer.Start"

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.sender.Send(TypeStartRecognition, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.closeLocked()
	r.events = make(chan voice.RecognitionEvent, eventsBuffer)
	return r.events, nil
}

// Stop просит клиента остановить распознавание и закрывает канал событий
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events == nil {
		return nil
	}
	r.closeLocked()
	if err := r.sender.Send(TypeStopRecognition, nil); err != nil {
		return fmt.Errorf("wsbridge.Recognizer.Stop: %w", err)
	}
	return nil
}

// Deliver передает событие текущему захвату. Без активного захвата
// событие отбрасывается.
func (r *Recognizer) Deliver(ev voice.RecognitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events == nil {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.log.Warn("recognition event dropped", slog.String("kind", ev.Kind.String()))
	}
}

// Close освобождает канал без кадра клиенту
func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Recognizer) closeLocked() {
	if r.events != nil {
		close(r.events)
		r.events = nil
	}
}

var _ voice.Recognizer = (*Recognizer)(nil)

// logSendErr для кадров, потеря которых не ломает интервью
func logSendErr(log *slog.Logger, msgType string, err error) {
	if err != nil {
		log.Warn("failed to send frame", slog.String("type", msgType), sl.Err(err))
	}
}
