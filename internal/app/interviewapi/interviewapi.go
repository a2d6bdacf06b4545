package interviewapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/interview-coach/internal/cache"
	"github.com/magabrotheeeer/interview-coach/internal/config"
	"github.com/magabrotheeeer/interview-coach/internal/feedback"
	"github.com/magabrotheeeer/interview-coach/internal/gemini"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/health"
	"github.com/magabrotheeeer/interview-coach/internal/lib/jwt"
	"github.com/magabrotheeeer/interview-coach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/metrics"
	"github.com/magabrotheeeer/interview-coach/internal/migrations"
	"github.com/magabrotheeeer/interview-coach/internal/objectstore"
	"github.com/magabrotheeeer/interview-coach/internal/paymentprovider"
	"github.com/magabrotheeeer/interview-coach/internal/questions"
	"github.com/magabrotheeeer/interview-coach/internal/report"
	authservice "github.com/magabrotheeeer/interview-coach/internal/services/auth"
	"github.com/magabrotheeeer/interview-coach/internal/services/capability"
	"github.com/magabrotheeeer/interview-coach/internal/services/fulfillment"
	paymentservice "github.com/magabrotheeeer/interview-coach/internal/services/payment"
	sessionservice "github.com/magabrotheeeer/interview-coach/internal/services/session"
	"github.com/magabrotheeeer/interview-coach/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API сервиса интервью
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache

	// заданы, если задачи выполняются через RabbitMQ
	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel

	// заданы, если задачи выполняются в процессе API
	local     *fulfillment.LocalDispatcher
	converter *report.ChromeConverter
}

// pingFunc адаптер функции к health.Checker
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// New собирает зависимости и маршруты
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.interviewapi.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	ai := gemini.NewClient(cfg.Gemini)
	if cfg.APIKey == "" {
		logger.Warn("gemini api key is not configured, default questions will be served")
	}
	questionGenerator := questions.NewGenerator(logger, ai, cfg.QuestionCount, m)

	sessions := sessionservice.New(db, cacheRedis, logger, m, cfg.CacheTTL)
	authService := authservice.New(db, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL))

	if !cfg.PaymentsConfigured() {
		logger.Warn("payment provider keys are not configured, payment initiation is disabled")
	}
	gate := capability.New(db, paymentprovider.NewClient(cfg.Razorpay), cfg.Razorpay, logger)
	reconciler := paymentservice.New(db, cfg.WebhookSecret, logger, m)

	checkers := map[string]health.Checker{
		"postgres": db,
		"redis":    cacheRedis,
	}

	var dispatcher fulfillment.Dispatcher
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RetryDelay)
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.FulfillmentExchange, rabbitmq.GetFulfillmentQueues())
		if err != nil {
			_ = conn.Close()
			app.closeStores()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqpConn, app.amqpCh = conn, ch
		checkers["rabbitmq"] = pingFunc(func(context.Context) error {
			if conn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		})
		publisher, err := rabbitmq.NewPublisher(ch)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			app.closeStores()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		dispatcher = fulfillment.NewAMQPDispatcher(publisher, logger)
		logger.Info("fulfillment tasks are published to rabbitmq")
	} else {
		store, err := objectstore.New(cfg.ObjectStorage)
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			// отчеты упадут до появления бакета, остальное API работает
			logger.Error("failed to ensure report bucket", sl.Err(err))
		}
		app.converter = report.NewChromeConverter(cfg.ChromePath)
		pipeline := fulfillment.NewPipeline(sessions, feedback.NewGenerator(ai), app.converter, store,
			cfg.RenderTimeout, logger, m)
		app.local = fulfillment.NewLocalDispatcher(pipeline, cfg.TaskTimeout, logger)
		dispatcher = app.local
		logger.Info("fulfillment tasks run in process")
	}
	sessions.SetDispatcher(dispatcher)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:       authService,
		Sessions:   sessions,
		Gate:       gate,
		Reconciler: reconciler,
		Questions:  questionGenerator,
		Dispatcher: dispatcher,
		Checkers:   checkers,
		Gatherer:   prometheus.DefaultGatherer,
	}, RouteOptions{
		RPS:            cfg.RPS,
		Burst:          cfg.Burst,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	app.server = &http.Server{
		Addr:        cfg.AddressHTTP,
		Handler:     router,
		ReadTimeout: cfg.TimeoutHTTP,
		// без WriteTimeout: websocket-соединения живут дольше TimeoutHTTP
		IdleTimeout: cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает запросы до отмены ctx
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close(timeoutCtx)
		return err
	}
}

func (a *App) close(ctx context.Context) {
	if a.local != nil {
		if err := a.local.Wait(ctx); err != nil {
			a.logger.Warn("in-process fulfillment tasks did not finish", sl.Err(err))
		}
	}
	if a.converter != nil {
		a.converter.Close()
	}
	if a.amqpCh != nil {
		if err := a.amqpCh.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	a.closeStores()
}

func (a *App) closeStores() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
