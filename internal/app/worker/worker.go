// Package worker собирает воркер фоновых задач: потребители очередей
// fulfillment из RabbitMQ и исполнитель задач.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/interview-coach/internal/cache"
	"github.com/magabrotheeeer/interview-coach/internal/config"
	"github.com/magabrotheeeer/interview-coach/internal/feedback"
	"github.com/magabrotheeeer/interview-coach/internal/gemini"
	"github.com/magabrotheeeer/interview-coach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/metrics"
	"github.com/magabrotheeeer/interview-coach/internal/objectstore"
	"github.com/magabrotheeeer/interview-coach/internal/report"
	"github.com/magabrotheeeer/interview-coach/internal/services/fulfillment"
	sessionservice "github.com/magabrotheeeer/interview-coach/internal/services/session"
	"github.com/magabrotheeeer/interview-coach/internal/storage/repository"
)

const drainTimeout = 30 * time.Second

// App воркер fulfillment
type App struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	db        *repository.Storage
	cache     *cache.Cache
	converter *report.ChromeConverter
	worker    *fulfillment.Worker
	logger    *slog.Logger
}

// New подключается к брокеру и хранилищам
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.worker.New"

	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq.url is required for the worker", op)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.FulfillmentExchange, rabbitmq.GetFulfillmentQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, err := objectstore.New(cfg.ObjectStorage)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Error("failed to ensure report bucket", sl.Err(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	sessions := sessionservice.New(db, cacheRedis, logger, m, cfg.CacheTTL)
	converter := report.NewChromeConverter(cfg.ChromePath)
	pipeline := fulfillment.NewPipeline(sessions, feedback.NewGenerator(gemini.NewClient(cfg.Gemini)), converter, store,
		cfg.RenderTimeout, logger, m)

	return &App{
		conn:      conn,
		ch:        ch,
		db:        db,
		cache:     cacheRedis,
		converter: converter,
		worker:    fulfillment.NewWorker(pipeline, cfg.TaskTimeout, logger),
		logger:    logger,
	}, nil
}

// Run потребляет очереди до отмены ctx и дожидается начатых задач
func (a *App) Run(ctx context.Context) error {
	queues := rabbitmq.GetFulfillmentQueues()

	var consumers []<-chan struct{}
	for _, q := range queues {
		// ключ маршрутизации совпадает с именем задачи
		task, err := fulfillment.ParseTask(q.RoutingKey)
		if err != nil {
			a.close()
			return err
		}
		done, err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, q.QueueName, a.worker.Handle(task))
		if err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			a.close()
			return err
		}
		consumers = append(consumers, done)
	}
	a.logger.Info("fulfillment worker started", slog.Int("queues", len(queues)))

	closed := a.conn.NotifyClose(make(chan *amqp.Error, 1))
	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("fulfillment worker shutting down gracefully")
	case amqpErr := <-closed:
		if amqpErr != nil {
			runErr = amqpErr
		} else {
			runErr = errors.New("rabbitmq connection closed")
		}
		a.logger.Error("rabbitmq connection lost", sl.Err(runErr))
	}

	timeout := time.After(drainTimeout)
drain:
	for _, done := range consumers {
		select {
		case <-done:
		case <-timeout:
			a.logger.Warn("fulfillment tasks did not finish before shutdown")
			break drain
		}
	}

	a.close()
	return runErr
}

func (a *App) close() {
	a.converter.Close()
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
