// Package create создает сессию интервью. Если вопросы не переданы,
// они генерируются по резюме.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/interview-coach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// Service создание сессии
type Service interface {
	Create(ctx context.Context, userID string, questions []string, resumeText string) (*models.Session, error)
}

// QuestionGenerator генерация вопросов по резюме
type QuestionGenerator interface {
	Generate(ctx context.Context, resumeText string) ([]string, error)
}

// Handler обработчик POST /sessions
type Handler struct {
	log       *slog.Logger
	service   Service
	generator QuestionGenerator
	validate  *validator.Validate
}

// New создает Handler
func New(log *slog.Logger, service Service, generator QuestionGenerator) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		generator: generator,
		validate:  validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать сессию интервью
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param request body models.CreateSessionRequest true "Резюме и, опционально, вопросы"
// @Success 201 {object} response.Response "Сессия создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /sessions [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.create"

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

	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	questions := req.Questions
	if len(questions) == 0 {
		generated, err := h.generator.Generate(r.Context(), req.ResumeText)
		if err != nil {
			log.Error("failed to generate questions", sl.Err(err))
			status, body := response.FromError(err)
			w.WriteHeader(status)
			render.JSON(w, r, body)
			return
		}
		questions = generated
	}

	session, err := h.service.Create(r.Context(), userID, questions, req.ResumeText)
	if err != nil {
		log.Error("failed to create session", sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("session created", slog.String("session_id", session.ID), slog.Int("questions", len(session.Questions)))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}
