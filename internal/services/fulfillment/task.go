package fulfillment

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/interview-coach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// Task вид фоновой задачи по завершенной сессии
type Task string

// Задачи выполняются независимо, сбой одной не влияет на другую
const (
	TaskFeedback Task = "feedback"
	TaskReport   Task = "report"
)

// Tasks все задачи, которые ставятся при завершении сессии
var Tasks = []Task{TaskFeedback, TaskReport}

// ParseTask разбирает имя задачи
func ParseTask(s string) (Task, error) {
	switch Task(s) {
	case TaskFeedback, TaskReport:
		return Task(s), nil
	default:
		return "", fmt.Errorf("unknown task %q: %w", s, models.ErrValidation)
	}
}

// RoutingKey ключ маршрутизации задачи в обменнике fulfillment
func (t Task) RoutingKey() string {
	if t == TaskReport {
		return rabbitmq.ReportRoutingKey
	}
	return rabbitmq.FeedbackRoutingKey
}

// Job сообщение очереди
type Job struct {
	SessionID   string    `json:"session_id"`
	Task        Task      `json:"task"`
	RequestedAt time.Time `json:"requested_at"`
}

// MessageID идентификатор сообщения в брокере, session:task
func (j Job) MessageID() string {
	return j.SessionID + ":" + string(j.Task)
}
