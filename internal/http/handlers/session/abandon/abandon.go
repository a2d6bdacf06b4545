// Package abandon прерывает незавершенное интервью.
package abandon

import (
	"context"
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

// Service прерывание сессии
type Service interface {
	Abandon(ctx context.Context, sessionID, userID string) (*models.Session, error)
}

// Handler обработчик POST /sessions/{id}/abandon
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
// @Summary Прервать интервью
// @Tags Sessions
// @Produce  json
// @Param id path string true "ID сессии"
// @Success 200 {object} response.Response "Сессия прервана"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия не в процессе"
// @Router /sessions/{id}/abandon [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.abandon"

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

	sessionID := chi.URLParam(r, "id")
	session, err := h.service.Abandon(r.Context(), sessionID, userID)
	if err != nil {
		log.Error("failed to abandon session", slog.String("session_id", sessionID), sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("session abandoned", slog.String("session_id", sessionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}
