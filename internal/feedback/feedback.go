// Package feedback формирует AI-отзыв по парам вопрос/ответ завершенного интервью.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/interview-coach/internal/gemini"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// NoAnswer подставляется вместо пропущенного ответа
const NoAnswer = "No answer provided"

var generation = gemini.GenerationConfig{
	Temperature:     0.3,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 2048,
}

// TextGenerator генеративная модель
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, gen gemini.GenerationConfig) (string, error)
}

// Generator генератор отзывов
type Generator struct {
	ai TextGenerator
}

// NewGenerator конструктор
func NewGenerator(ai TextGenerator) *Generator {
	return &Generator{ai: ai}
}

// Generate возвращает текст отзыва. Ошибки модели оборачиваются в models.ErrUpstream.
func (g *Generator) Generate(ctx context.Context, questions, answers []string) (string, error) {
	const op = "feedback.Generate"
	if len(questions) == 0 {
		return "", fmt.Errorf("%s: no questions: %w", op, models.ErrValidation)
	}

	text, err := g.ai.GenerateText(ctx, Prompt(questions, answers), generation)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, models.ErrUpstream, err)
	}
	return text, nil
}

// QAContent склеивает пары вопрос/ответ в текст для промпта
func QAContent(questions, answers []string) string {
	pairs := make([]string, 0, len(questions))
	for i, q := range questions {
		answer := ""
		if i < len(answers) {
			answer = strings.TrimSpace(answers[i])
		}
		if answer == "" {
			answer = NoAnswer
		}
		pairs = append(pairs, fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, q, i+1, answer))
	}
	return strings.Join(pairs, "\n\n")
}

// Prompt промпт анализа интервью
func Prompt(questions, answers []string) string {
	return fmt.Sprintf(`Analyze this interview session and provide comprehensive feedback:

%s

Please provide detailed feedback covering:

1. **Overall Performance Assessment**
   - Rate the candidate's performance (1-10 scale)
   - Highlight strengths and areas for improvement

2. **Individual Answer Analysis**
   - Evaluate each answer for relevance, depth, and clarity
   - Suggest improvements for weak responses

3. **Communication Skills**
   - Assess articulation, structure, and professionalism
   - Note any communication strengths or weaknesses

4. **Technical Competency** (if applicable)
   - Evaluate technical knowledge demonstrated
   - Identify gaps or strong technical points

5. **Recommendations for Improvement**
   - Specific actionable advice
   - Suggested areas for further development
   - Interview preparation tips

6. **Key Takeaways**
   - Main strengths to leverage
   - Priority areas to work on before next interviews

Format the response in a clear, professional manner that would be helpful for the candidate's development.`,
		QAContent(questions, answers))
}
