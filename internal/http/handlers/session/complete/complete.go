// Package complete завершает сессию интервью и ставит фоновую обработку.
package complete

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/interview-coach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// Service завершение сессии
type Service interface {
	Complete(ctx context.Context, sessionID, userID string, answers []string) (*models.Session, error)
}

// Handler обработчик POST /sessions/{id}/complete
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Завершить интервью
// @Description Переводит сессию в completed. Тело необязательно: без answers используются уже записанные ответы.
// @Description Отзыв и PDF-отчет формируются асинхронно.
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param id path string true "ID сессии"
// @Param request body models.CompleteRequest false "Финальный набор ответов"
// @Success 200 {object} response.Response "Сессия завершена"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия не в процессе"
// @Router /sessions/{id}/complete [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.complete"

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

	var req models.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	sessionID := chi.URLParam(r, "id")
	session, err := h.service.Complete(r.Context(), sessionID, userID, req.Answers)
	if err != nil {
		log.Error("failed to complete session", slog.String("session_id", sessionID), sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("session completed", slog.String("session_id", sessionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}
