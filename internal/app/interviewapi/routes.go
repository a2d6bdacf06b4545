// Package interviewapi собирает HTTP API: маршруты, зависимости и graceful shutdown.
package interviewapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/fulfillment/retry"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/health"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/interview/voicews"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/profile/capabilities"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/profile/read"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/questions/generate"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/session/abandon"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/session/answer"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/session/complete"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/session/create"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/session/get"
	"github.com/magabrotheeeer/interview-coach/internal/http/handlers/session/list"
	"github.com/magabrotheeeer/interview-coach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/interview-coach/internal/questions"
	authservice "github.com/magabrotheeeer/interview-coach/internal/services/auth"
	"github.com/magabrotheeeer/interview-coach/internal/services/capability"
	"github.com/magabrotheeeer/interview-coach/internal/services/fulfillment"
	paymentservice "github.com/magabrotheeeer/interview-coach/internal/services/payment"
	sessionservice "github.com/magabrotheeeer/interview-coach/internal/services/session"
)

// Services зависимости обработчиков
type Services struct {
	Auth       *authservice.Service
	Sessions   *sessionservice.Service
	Gate       *capability.Gate
	Reconciler *paymentservice.Reconciler
	Questions  *questions.Generator
	Dispatcher fulfillment.Dispatcher
	Checkers   map[string]health.Checker
	Gatherer   prometheus.Gatherer
}

// RouteOptions настройки маршрутов
type RouteOptions struct {
	RPS            float64
	Burst          int
	AllowedOrigins []string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, opts RouteOptions) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))

			r.Get("/profile", read.New(logger, svc.Auth).ServeHTTP)
			r.Get("/profile/capabilities", capabilities.New(logger, svc.Gate).ServeHTTP)

			// Генерация вопросов ходит в модель, поэтому ограничена по частоте
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimitMiddleware(logger, opts.RPS, opts.Burst))
				r.Post("/questions", generate.New(logger, svc.Questions).ServeHTTP)
				r.Post("/sessions", create.New(logger, svc.Sessions, svc.Questions).ServeHTTP)
			})

			r.Get("/sessions", list.New(logger, svc.Sessions).ServeHTTP)
			r.Get("/sessions/{id}", get.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/answers", answer.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/complete", complete.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/abandon", abandon.New(logger, svc.Sessions).ServeHTTP)
			r.Post("/sessions/{id}/{task:feedback|report}", retry.New(logger, svc.Sessions, svc.Dispatcher).ServeHTTP)

			// Голосовое интервью только для премиума
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.PremiumMiddleware(logger, svc.Gate))
				r.Get("/sessions/{id}/voice", voicews.New(logger, svc.Sessions, opts.AllowedOrigins...).ServeHTTP)
			})

			r.Post("/payments/orders", paymentcreate.New(logger, svc.Gate).ServeHTTP)
			r.Get("/payments/orders", paymentlist.New(logger, svc.Gate).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", paymentwebhook.New(logger, svc.Reconciler).ServeHTTP)
	})

	r.Method(http.MethodGet, "/health", health.New(logger, svc.Checkers))
	r.Handle("/metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
