// Package voicews поднимает websocket голосового интервью для премиум-пользователя.
package voicews

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/interview-coach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
	"github.com/magabrotheeeer/interview-coach/internal/voice"
	"github.com/magabrotheeeer/interview-coach/internal/voice/wsbridge"
)

// Service чтение сессии и фиксация ответов
type Service interface {
	voice.AnswerRecorder
	Get(ctx context.Context, sessionID, userID string) (*models.Session, error)
}

// Handler обработчик GET /sessions/{id}/voice
type Handler struct {
	log      *slog.Logger
	service  Service
	upgrader websocket.Upgrader
}

// New создает Handler. Пустой allowedOrigins пропускает любой Origin.
func New(log *slog.Logger, service Service, allowedOrigins ...string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// ServeHTTP godoc
// @Summary Голосовое интервью
// @Description Websocket. Клиент отвечает за микрофон и озвучивание, сервер ведет ход интервью.
// @Description Токен передается в заголовке Authorization или параметре access_token.
// @Tags Sessions
// @Param id path string true "ID сессии"
// @Param access_token query string false "JWT, если заголовок недоступен"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нужен премиум"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия уже завершена"
// @Router /sessions/{id}/voice [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.interview.voicews"

	sessionID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("session_id", sessionID),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	session, err := h.service.Get(r.Context(), sessionID, userID)
	if err != nil {
		log.Error("failed to get session", sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}
	if session.Status != models.SessionInProgress {
		log.Warn("voice interview requested for finished session", slog.String("status", string(session.Status)))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("session is not in progress"))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	bridge := wsbridge.New(ws, log)
	ctrl, err := voice.NewController(session, bridge.Recognizer(), bridge.Synthesizer(), h.service, log)
	if err != nil {
		log.Error("failed to create voice controller", sl.Err(err))
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "cannot start interview"),
			time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}

	log.Info("voice interview connected", slog.Int("answered", len(session.Answers)))
	if err := bridge.Run(r.Context(), ctrl); err != nil {
		log.Warn("voice interview connection closed with error", sl.Err(err))
		return
	}
	log.Info("voice interview disconnected", slog.Bool("finished", ctrl.Completed() != nil))
}
