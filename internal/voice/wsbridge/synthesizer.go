package wsbridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/interview-coach/internal/voice"
)

// Synthesizer синтез речи на стороне клиента. Окончание фразы клиент
// сообщает кадром speech_ended.
type Synthesizer struct {
	sender Sender
	log    *slog.Logger

	mu        sync.Mutex
	available bool
	current   chan struct{}
}

// NewSynthesizer создает синтезатор; до кадра hello он недоступен
func NewSynthesizer(sender Sender, log *slog.Logger) *Synthesizer {
	return &Synthesizer{sender: sender, log: log}
}

// SetAvailable фиксирует поддержку синтеза клиентом
func (s *Synthesizer) SetAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = ok
}

// Speak отправляет фразу клиенту. Без поддержки синтеза фраза
// считается сразу договоренной.
func (s *Synthesizer) Speak(_ context.Context, text string) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finishLocked()
	spoken := make(chan struct{})
	if !s.available {
		close(spoken)
		return spoken, nil
	}
	if err := s.sender.Send(TypeSpeak, TextPayload{Text: text}); err != nil {
		return nil, fmt.Errorf("wsbridge.Synthesizer.Speak: %w", err)
	}
	s.current = spoken
	return spoken, nil
}

// Cancel прерывает текущую фразу
func (s *Synthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	s.finishLocked()
	logSendErr(s.log, TypeCancelSpeech, s.sender.Send(TypeCancelSpeech, nil))
}

// SpeechEnded отмечает текущую фразу договоренной
func (s *Synthesizer) SpeechEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked()
}

func (s *Synthesizer) finishLocked() {
	if s.current != nil {
		close(s.current)
		s.current = nil
	}
}

var _ voice.Synthesizer = (*Synthesizer)(nil)
