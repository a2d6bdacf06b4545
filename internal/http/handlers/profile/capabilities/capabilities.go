// Package capabilities сообщает клиенту, какие возможности ему открыты.
package capabilities

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/interview-coach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
)

// Service проверка премиум-доступа
type Service interface {
	CanEnterVoiceInterview(ctx context.Context, userID string) (bool, error)
}

// Handler обработчик GET /profile/capabilities
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Доступные возможности
// @Description Голосовое интервью доступно только после оплаты премиума
// @Tags Profile
// @Produce  json
// @Success 200 {object} response.Response "Возможности пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Профиль не найден"
// @Router /profile/capabilities [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.capabilities"

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

	voice, err := h.service.CanEnterVoiceInterview(r.Context(), userID)
	if err != nil {
		log.Error("failed to check capabilities", sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"text_interview":  true,
		"voice_interview": voice,
		"premium":         voice,
	}))
}
