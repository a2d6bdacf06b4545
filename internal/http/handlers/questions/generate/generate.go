// Package generate реализует генерацию вопросов интервью по тексту резюме.
package generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/interview-coach/internal/http/response"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// Generator генератор вопросов
type Generator interface {
	Generate(ctx context.Context, resumeText string) ([]string, error)
}

// Handler обработчик POST /questions
type Handler struct {
	log       *slog.Logger
	generator Generator
	validate  *validator.Validate
}

// New создает Handler
func New(log *slog.Logger, generator Generator) *Handler {
	return &Handler{
		log:       log,
		generator: generator,
		validate:  validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сгенерировать вопросы
// @Description Возвращает вопросы по резюме. При сбое модели отдается набор по умолчанию.
// @Tags Questions
// @Accept  json
// @Produce  json
// @Param request body models.QuestionsRequest true "Текст резюме"
// @Success 200 {object} response.Response "Вопросы"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /questions [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.questions.generate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.QuestionsRequest
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

	questions, err := h.generator.Generate(r.Context(), req.ResumeText)
	if err != nil {
		log.Error("failed to generate questions", sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("questions generated", slog.Int("count", len(questions)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"questions": questions,
	}))
}
