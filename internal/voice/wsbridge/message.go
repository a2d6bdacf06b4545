// Package wsbridge реализует платформенную границу голосового интервью
// поверх websocket: распознавание и синтез речи выполняет браузер,
// сервер управляет ими кадрами JSON.
package wsbridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// ErrMalformedFrame кадр или его нагрузка не разбираются
var ErrMalformedFrame = errors.New("malformed frame")

// Кадры клиента
const (
	TypeHello            = "hello"
	TypePrompt           = "prompt"
	TypeStartCapture     = "start_capture"
	TypeStopCapture      = "stop_capture"
	TypeAdvance          = "advance"
	TypeTranscript       = "transcript"
	TypeRecognitionError = "recognition_error"
	TypeRecognitionEnded = "recognition_ended"
	TypeSpeechEnded      = "speech_ended"
)

// Кадры сервера
const (
	TypeState            = "state"
	TypeSpeak            = "speak"
	TypeCancelSpeech     = "cancel_speech"
	TypeStartRecognition = "start_recognition"
	TypeStopRecognition  = "stop_recognition"
	TypeAnswer           = "answer"
	TypeCompleted        = "completed"
	TypeError            = "error"
)

// Message кадр протокола
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage собирает кадр с произвольной полезной нагрузкой
func NewMessage(msgType string, payload any) (*Message, error) {
	msg := &Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wsbridge.NewMessage: %w", err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode разбирает полезную нагрузку кадра. Пустая нагрузка допустима.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("wsbridge.Decode %s: %w: %w", m.Type, ErrMalformedFrame, err)
	}
	return nil
}

// HelloPayload возможности платформы клиента
type HelloPayload struct {
	Recognition bool `json:"recognition"`
	Synthesis   bool `json:"synthesis"`
}

// TextPayload нагрузка с текстом: prompt, advance, speak, answer
type TextPayload struct {
	Text string `json:"text"`
}

// TranscriptPayload сегмент распознанной речи
type TranscriptPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// RecognitionErrorPayload причина сбоя распознавания
type RecognitionErrorPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload сообщение об ошибке для клиента
type ErrorPayload struct {
	Message string `json:"message"`
}

// CompletedPayload завершенная сессия
type CompletedPayload struct {
	Session *models.Session `json:"session"`
}
