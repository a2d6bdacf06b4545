// Package health отдает состояние сервиса и его зависимостей.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Checker зависимость, доступность которой проверяется
type Checker interface {
	Ping(ctx context.Context) error
}

// Handler обработчик /health
type Handler struct {
	log      *slog.Logger
	checkers map[string]Checker
}

// New создает Handler. checkers может быть пустым.
func New(log *slog.Logger, checkers map[string]Checker) *Handler {
	return &Handler{
		log:      log,
		checkers: checkers,
	}
}

// ServeHTTP godoc
// @Summary Состояние сервиса
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Все зависимости доступны"
// @Failure 503 {object} response.Response "Часть зависимостей недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checkers[name].Ping(ctx); err != nil {
			h.log.Error("health check failed", slog.String("op", op), slog.String("component", name), sl.Err(err))
			components[name] = "unavailable"
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status":     status,
		"components": components,
	}))
}
