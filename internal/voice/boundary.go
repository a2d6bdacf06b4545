package voice

import (
	"context"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// EventKind вид события распознавания
type EventKind int

// События распознавателя. Промежуточные сегменты только для отображения,
// в ответ попадают финальные.
const (
	EventFinalSegment EventKind = iota + 1
	EventInterimSegment
	EventError
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventFinalSegment:
		return "final"
	case EventInterimSegment:
		return "interim"
	case EventError:
		return "error"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// RecognitionEvent событие распознавания речи
type RecognitionEvent struct {
	Kind EventKind
	Text string
	Err  error
}

// Recognizer платформенный распознаватель речи. Stop идемпотентен,
// закрывает канал событий до возврата и не ждет его читателя.
type Recognizer interface {
	Available() bool
	Start(ctx context.Context) (<-chan RecognitionEvent, error)
	Stop() error
}

// Synthesizer платформенный синтез речи. Канал из Speak закрывается,
// когда фраза договорена или отменена.
type Synthesizer interface {
	Speak(ctx context.Context, text string) (<-chan struct{}, error)
	Cancel()
}

// AnswerRecorder фиксация ответов и завершение сессии
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, sessionID, userID string, index int, text string) error
	Complete(ctx context.Context, sessionID, userID string, answers []string) (*models.Session, error)
}
