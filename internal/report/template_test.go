package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

func completedSession() *models.Session {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := created.Add(30 * time.Minute)
	return &models.Session{
		ID:          "11111111-2222-3333-4444-555555555555",
		UserID:      "user-1",
		Questions:   []string{"Why <Go>?", "Tell me about a failure."},
		Answers:     []string{"Because it is simple & fast", ""},
		Status:      models.SessionCompleted,
		CreatedAt:   created,
		CompletedAt: &completed,
	}
}

func TestRenderHTML_QuestionsAndAnswers(t *testing.T) {
	html, err := RenderHTML(completedSession())
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, "Q1: Why &lt;Go&gt;?")
	assert.Contains(t, out, "A1: Because it is simple &amp; fast")
	assert.Contains(t, out, "A2: No answer provided")
	assert.Contains(t, out, "Generated on March 1, 2026")
	assert.Contains(t, out, "11111111-2222-3333-4444-555555555555")
	assert.Contains(t, out, "<strong>Status:</strong> completed")
	assert.NotContains(t, out, "AI Feedback", "feedback section is omitted until feedback exists")
}

func TestRenderHTML_WithFeedback(t *testing.T) {
	session := completedSession()
	fb := "Strong start.\nWork on structure <b>now</b>."
	session.Feedback = &fb

	html, err := RenderHTML(session)
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, "AI Feedback &amp; Analysis")
	assert.Contains(t, out, "Strong start.<br>Work on structure &lt;b&gt;now&lt;/b&gt;.")
}

func TestRenderHTML_NotCompleted(t *testing.T) {
	session := completedSession()
	session.CompletedAt = nil
	session.Status = models.SessionInProgress

	html, err := RenderHTML(session)
	require.NoError(t, err)

	assert.Contains(t, string(html), "<strong>Completed:</strong> Not completed")
	assert.Equal(t, 2, strings.Count(string(html), `class="qa-item"`))
}

func TestObjectKey_Deterministic(t *testing.T) {
	session := completedSession()

	assert.Equal(t, "user-1/interview-report-11111111-2222-3333-4444-555555555555.pdf", ObjectKey(session))
	assert.Equal(t, ObjectKey(session), ObjectKey(session))
}
