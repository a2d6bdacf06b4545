package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/interview-coach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// Worker обработчик сообщений очередей fulfillment
type Worker struct {
	runner  Runner
	timeout time.Duration
	log     *slog.Logger
}

// NewWorker создает обработчик с таймаутом на одну задачу
func NewWorker(runner Runner, timeout time.Duration, log *slog.Logger) *Worker {
	return &Worker{runner: runner, timeout: timeout, log: log}
}

// Handle возвращает обработчик очереди задачи task. Ошибка разбора или
// выполнения отклоняет сообщение в очередь отказов.
func (w *Worker) Handle(task Task) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		const op = "fulfillment.Worker.Handle"

		var job Job
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("%s: decode job: %w: %w", op, models.ErrValidation, err)
		}
		if job.SessionID == "" {
			return fmt.Errorf("%s: job without session id: %w", op, models.ErrValidation)
		}
		if job.Task != "" && job.Task != task {
			return fmt.Errorf("%s: job for %q delivered to %q queue: %w", op, job.Task, task, models.ErrValidation)
		}

		w.log.Info("fulfillment job received", slog.String("session_id", job.SessionID), slog.String("task", string(task)))
		if w.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, w.timeout)
			defer cancel()
		}
		if err := w.runner.Run(ctx, task, job.SessionID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}
