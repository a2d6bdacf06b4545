// Package questions генерирует вопросы интервью по тексту резюме.
// Ответ модели приводится к ровно N непустым вопросам, иначе
// используется фиксированный набор DefaultQuestions.
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/magabrotheeeer/interview-coach/internal/gemini"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/metrics"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// DefaultQuestions набор вопросов на случай недоступности или некорректного ответа модели.
// Берутся первые N.
var DefaultQuestions = []string{
	"Tell me about your most challenging project and how you overcame obstacles.",
	"How do you stay updated with the latest technologies in your field?",
	"Describe a time when you had to work with a difficult team member.",
	"What motivates you in your career, and where do you see yourself in 5 years?",
	"Can you walk me through your problem-solving approach for complex technical issues?",
	"Tell me about your most significant professional achievement.",
	"How do you handle challenging situations or conflicts at work?",
	"What technical skills from your resume are you most proud of?",
	"Describe a project where you had to learn something new quickly.",
	"What are your career goals and how does this role fit into them?",
}

var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

var generation = gemini.GenerationConfig{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 1024,
}

// TextGenerator генеративная модель
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, gen gemini.GenerationConfig) (string, error)
}

// Generator генератор вопросов
type Generator struct {
	log     *slog.Logger
	ai      TextGenerator
	count   int
	metrics *metrics.Metrics
}

// NewGenerator создает генератор на count вопросов. count не больше len(DefaultQuestions).
func NewGenerator(log *slog.Logger, ai TextGenerator, count int, m *metrics.Metrics) *Generator {
	if count < 1 || count > len(DefaultQuestions) {
		count = len(DefaultQuestions) / 2
	}
	return &Generator{log: log, ai: ai, count: count, metrics: m}
}

// Count число вопросов в интервью
func (g *Generator) Count() int {
	return g.count
}

// Generate возвращает ровно Count вопросов. Ошибка возможна только для пустого резюме:
// сбои модели заменяются набором по умолчанию.
func (g *Generator) Generate(ctx context.Context, resumeText string) ([]string, error) {
	const op = "questions.Generate"
	if strings.TrimSpace(resumeText) == "" {
		return nil, fmt.Errorf("%s: resume text is empty: %w", op, models.ErrValidation)
	}

	log := g.log.With(slog.String("op", op))

	raw, err := g.ai.GenerateText(ctx, Prompt(resumeText, g.count), generation)
	if err != nil {
		log.Warn("question generation failed, using defaults", sl.Err(err))
		g.metrics.QuestionFallback()
		return Fallback(g.count), nil
	}

	questions, ok := Normalize(raw, g.count)
	if !ok {
		log.Warn("model returned malformed questions, using defaults", slog.Int("raw_len", len(raw)))
		g.metrics.QuestionFallback()
		return Fallback(g.count), nil
	}
	return questions, nil
}

// Normalize извлекает JSON-массив строк из ответа модели. false, если массива нет,
// он не декодируется, содержит пустые строки или его длина не равна count.
func Normalize(raw string, count int) ([]string, bool) {
	match := jsonArray.FindString(raw)
	if match == "" {
		return nil, false
	}
	var parsed []string
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, false
	}
	if len(parsed) != count {
		return nil, false
	}
	result := make([]string, 0, count)
	for _, q := range parsed {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, false
		}
		result = append(result, q)
	}
	return result, true
}

// Fallback копия первых count вопросов по умолчанию
func Fallback(count int) []string {
	if count > len(DefaultQuestions) {
		count = len(DefaultQuestions)
	}
	out := make([]string, count)
	copy(out, DefaultQuestions[:count])
	return out
}

// Prompt промпт генерации вопросов
func Prompt(resumeText string, count int) string {
	placeholders := make([]string, count)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("%q", fmt.Sprintf("Question %d", i+1))
	}
	return fmt.Sprintf(`Based on this resume, generate exactly %d personalized interview questions that are specific to the candidate's experience and skills. Focus on their background, achievements, and technical skills mentioned in the resume.

Resume content:
%s

Please provide exactly %d questions in a JSON array format like this:
[%s]

Make the questions challenging but fair, focusing on:
1. Technical skills and experience
2. Past achievements and projects
3. Problem-solving scenarios
4. Leadership or teamwork experience
5. Career goals and motivation

Only return the JSON array, nothing else.`, count, resumeText, count, strings.Join(placeholders, ", "))
}
