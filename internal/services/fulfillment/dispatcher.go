package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/interview-coach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
)

// Dispatcher ставит задачи по завершенной сессии, не дожидаясь их выполнения
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string) error
	DispatchTask(ctx context.Context, sessionID string, task Task) error
}

// publishTimeout сколько DispatchTask ждет подтверждения брокера
const publishTimeout = 5 * time.Second

// Publisher публикует сообщение в обменник и ждет подтверждения
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, message any) error
}

// AMQPDispatcher ставит каждую задачу отдельным сообщением в обменник fulfillment
type AMQPDispatcher struct {
	publisher Publisher
	log       *slog.Logger
}

// NewAMQPDispatcher создает диспетчер поверх публикатора
func NewAMQPDispatcher(publisher Publisher, log *slog.Logger) *AMQPDispatcher {
	return &AMQPDispatcher{publisher: publisher, log: log}
}

// Dispatch публикует все задачи. Сбой публикации одной задачи не мешает остальным.
func (d *AMQPDispatcher) Dispatch(ctx context.Context, sessionID string) error {
	var errs []error
	for _, task := range Tasks {
		if err := d.DispatchTask(ctx, sessionID, task); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DispatchTask публикует одну задачу
func (d *AMQPDispatcher) DispatchTask(ctx context.Context, sessionID string, task Task) error {
	const op = "fulfillment.AMQPDispatcher.DispatchTask"

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	job := Job{SessionID: sessionID, Task: task, RequestedAt: time.Now().UTC()}
	err := d.publisher.Publish(ctx, rabbitmq.FulfillmentExchange, task.RoutingKey(), job.MessageID(), job)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, task, err)
	}
	d.log.Info("fulfillment task queued", slog.String("session_id", sessionID), slog.String("task", string(task)))
	return nil
}

// Runner выполняет задачу
type Runner interface {
	Run(ctx context.Context, task Task, sessionID string) error
}

// LocalDispatcher выполняет задачи в горутинах процесса API.
// Задачи отвязаны от контекста запроса и ограничены собственным таймаутом.
type LocalDispatcher struct {
	runner  Runner
	timeout time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewLocalDispatcher создает диспетчер в процессе
func NewLocalDispatcher(runner Runner, timeout time.Duration, log *slog.Logger) *LocalDispatcher {
	return &LocalDispatcher{runner: runner, timeout: timeout, log: log}
}

// Dispatch запускает все задачи параллельно
func (d *LocalDispatcher) Dispatch(ctx context.Context, sessionID string) error {
	for _, task := range Tasks {
		if err := d.DispatchTask(ctx, sessionID, task); err != nil {
			return err
		}
	}
	return nil
}

// DispatchTask запускает одну задачу и сразу возвращает управление
func (d *LocalDispatcher) DispatchTask(ctx context.Context, sessionID string, task Task) error {
	taskCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		runCtx, cancel := context.WithTimeout(taskCtx, d.timeout)
		defer cancel()
		if err := d.runner.Run(runCtx, task, sessionID); err != nil {
			d.log.Warn("local fulfillment task failed",
				slog.String("session_id", sessionID),
				slog.String("task", string(task)),
				sl.Err(err))
		}
	}()
	return nil
}

// Wait ждет завершения запущенных задач или отмены ctx
func (d *LocalDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
