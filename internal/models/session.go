// Package models содержит доменные структуры сервиса: сессию интервью,
// профиль пользователя и платежный заказ, а также DTO для JSON-запросов.
package models

import "time"

// SessionStatus состояние сессии интервью
type SessionStatus string

// Допустимые состояния сессии. completed и abandoned терминальны.
const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// Terminal сообщает, что из состояния нет переходов
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// Session сессия интервью. Questions фиксируются при создании,
// Answers растут по мере ответов и совпадают по длине с Questions после завершения.
type Session struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Questions    []string      `json:"questions"`
	Answers      []string      `json:"answers"`
	ResumeText   string        `json:"resume_text,omitempty"`
	Status       SessionStatus `json:"status"`
	Feedback     *string       `json:"feedback,omitempty"`
	PDFReportURL *string       `json:"pdf_report_url,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// OwnedBy проверяет владельца сессии
func (s *Session) OwnedBy(userID string) bool {
	return s != nil && s.UserID == userID
}

// NextIndex индекс первого неотвеченного вопроса
func (s *Session) NextIndex() int {
	return len(s.Answers)
}

// CreateSessionRequest тело запроса на создание сессии.
// Если Questions пусты, вопросы генерируются по тексту резюме.
type CreateSessionRequest struct {
	ResumeText string   `json:"resume_text" validate:"required,max=50000"`
	Questions  []string `json:"questions,omitempty" validate:"omitempty,max=10,dive,required"`
}

// QuestionsRequest тело запроса на генерацию вопросов
type QuestionsRequest struct {
	ResumeText string `json:"resume_text" validate:"required,max=50000"`
}

// AnswerRequest тело запроса на фиксацию ответа
type AnswerRequest struct {
	Index *int   `json:"index" validate:"required,min=0"`
	Text  string `json:"text" validate:"max=20000"`
}

// CompleteRequest тело запроса на завершение. Пустой Answers означает
// завершение с уже записанными ответами.
type CompleteRequest struct {
	Answers []string `json:"answers,omitempty"`
}
