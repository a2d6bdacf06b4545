// Package metrics содержит prometheus-метрики сервиса: переходы сессий,
// обработку вебхуков и выполнение фоновых задач.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор метрик. Методы безопасны для nil-получателя, чтобы сервисы
// можно было собирать без метрик в тестах.
type Metrics struct {
	sessionTransitions *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
	tasks              *prometheus.CounterVec
	taskDuration       *prometheus.HistogramVec
	questionFallbacks  prometheus.Counter
}

// New регистрирует метрики в registerer
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		sessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_session_transitions_total",
				Help: "Session state transitions by target status",
			},
			[]string{"status"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_events_total",
				Help: "Payment webhook deliveries by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		tasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_tasks_total",
				Help: "Fulfillment task runs by task and outcome",
			},
			[]string{"task", "outcome"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulfillment_task_duration_seconds",
				Help:    "Fulfillment task duration",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"task"},
		),
		questionFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "question_generation_fallbacks_total",
				Help: "Question generations answered with the default question set",
			},
		),
	}
}

// SessionTransition учитывает переход сессии в status
func (m *Metrics) SessionTransition(status string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(status).Inc()
}

// WebhookEvent учитывает обработанный вебхук
func (m *Metrics) WebhookEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(event, outcome).Inc()
}

// TaskFinished учитывает завершение фоновой задачи
func (m *Metrics) TaskFinished(task string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.tasks.WithLabelValues(task, outcome).Inc()
	m.taskDuration.WithLabelValues(task).Observe(time.Since(started).Seconds())
}

// QuestionFallback учитывает ответ набором вопросов по умолчанию
func (m *Metrics) QuestionFallback() {
	if m == nil {
		return
	}
	m.questionFallbacks.Inc()
}
