// Package retry повторно ставит фоновую задачу по завершенной сессии
// после ее сбоя.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/interview-coach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
	"github.com/magabrotheeeer/interview-coach/internal/services/fulfillment"
)

// SessionService проверка владельца и статуса сессии
type SessionService interface {
	Get(ctx context.Context, sessionID, userID string) (*models.Session, error)
}

// Dispatcher постановка одной задачи
type Dispatcher interface {
	DispatchTask(ctx context.Context, sessionID string, task fulfillment.Task) error
}

// Handler обработчик POST /sessions/{id}/{task}
type Handler struct {
	log        *slog.Logger
	sessions   SessionService
	dispatcher Dispatcher
}

// New создает Handler
func New(log *slog.Logger, sessions SessionService, dispatcher Dispatcher) *Handler {
	return &Handler{
		log:        log,
		sessions:   sessions,
		dispatcher: dispatcher,
	}
}

// ServeHTTP godoc
// @Summary Повторить фоновую задачу
// @Description Ставит задачу feedback или report заново. Доступно только для завершенных сессий.
// @Tags Sessions
// @Produce  json
// @Param id path string true "ID сессии"
// @Param task path string true "Задача: feedback или report"
// @Success 202 {object} response.Response "Задача поставлена"
// @Failure 400 {object} response.ErrorResponse "Неизвестная задача"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия не завершена"
// @Router /sessions/{id}/{task} [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.fulfillment.retry"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	task, err := fulfillment.ParseTask(chi.URLParam(r, "task"))
	if err != nil {
		log.Error("unknown task", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown task"))
		return
	}

	sessionID := chi.URLParam(r, "id")
	log = log.With(slog.String("session_id", sessionID), slog.String("task", string(task)))

	session, err := h.sessions.Get(r.Context(), sessionID, userID)
	if err != nil {
		log.Error("failed to get session", sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}
	if session.Status != models.SessionCompleted {
		log.Warn("retry requested for session that is not completed", slog.String("status", string(session.Status)))
		status, body := response.FromError(fmt.Errorf("%s: %w", op, models.ErrInvalidState))
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	if err := h.dispatcher.DispatchTask(r.Context(), sessionID, task); err != nil {
		log.Error("failed to dispatch task", sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("fulfillment task requeued")
	w.WriteHeader(http.StatusAccepted)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session_id": sessionID,
		"task":       task,
	}))
}
