package generate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, resumeText string) ([]string, error) {
	args := m.Called(ctx, resumeText)
	q, _ := args.Get(0).([]string)
	return q, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestGenerateHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*MockGenerator)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"resume_text":"Go developer, 5 years"}`,
			setupMocks: func(m *MockGenerator) {
				m.On("Generate", mock.Anything, "Go developer, 5 years").Return([]string{"Q1?", "Q2?"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"questions":["Q1?","Q2?"]}}`,
		},
		{
			name:           "invalid json",
			body:           `{"resume_text":`,
			setupMocks:     func(*MockGenerator) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "missing resume",
			body:           `{}`,
			setupMocks:     func(*MockGenerator) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field ResumeText is a required field"}`,
		},
		{
			name: "blank resume rejected by generator",
			body: `{"resume_text":"   "}`,
			setupMocks: func(m *MockGenerator) {
				m.On("Generate", mock.Anything, "   ").Return(nil, fmt.Errorf("questions: %w", models.ErrValidation)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockGenerator)
			tt.setupMocks(gen)

			req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			New(newNoopLogger(), gen).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			gen.AssertExpectations(t)
		})
	}
}
