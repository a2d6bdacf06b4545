// Package report рендерит отчет по завершенной сессии интервью:
// фиксированный HTML-шаблон и его печать в PDF через headless Chrome.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/magabrotheeeer/interview-coach/internal/feedback"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

//go:embed templates/report.html
var templatesFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templatesFS, "templates/report.html"))

const (
	dateLayout     = "January 2, 2006"
	dateTimeLayout = "January 2, 2006 15:04 MST"
)

type item struct {
	Number   int
	Question string
	Answer   string
}

type view struct {
	GeneratedOn   string
	Items         []item
	FeedbackLines []string
	SessionID     string
	Started       string
	Completed     string
	Status        string
}

// RenderHTML строит HTML отчета. Отзыв включается, если он уже есть у сессии.
func RenderHTML(session *models.Session) ([]byte, error) {
	const op = "report.RenderHTML"

	v := view{
		SessionID: session.ID,
		Started:   session.CreatedAt.UTC().Format(dateTimeLayout),
		Completed: "Not completed",
		Status:    string(session.Status),
	}
	generated := session.CreatedAt
	if session.CompletedAt != nil {
		generated = *session.CompletedAt
		v.Completed = session.CompletedAt.UTC().Format(dateTimeLayout)
	}
	v.GeneratedOn = generated.UTC().Format(dateLayout)

	for i, q := range session.Questions {
		answer := feedback.NoAnswer
		if i < len(session.Answers) && strings.TrimSpace(session.Answers[i]) != "" {
			answer = session.Answers[i]
		}
		v.Items = append(v.Items, item{Number: i + 1, Question: q, Answer: answer})
	}
	if session.Feedback != nil && strings.TrimSpace(*session.Feedback) != "" {
		v.FeedbackLines = strings.Split(*session.Feedback, "\n")
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

// ObjectKey путь отчета в хранилище. Ключ детерминирован, повторная генерация перезаписывает файл.
func ObjectKey(session *models.Session) string {
	return fmt.Sprintf("%s/interview-report-%s.pdf", session.UserID, session.ID)
}
