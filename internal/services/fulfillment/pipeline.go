// Package fulfillment выполняет фоновые задачи после завершения интервью:
// генерацию отзыва и PDF-отчета. Задачи ставятся через Dispatcher и
// выполняются либо в процессе API, либо отдельным воркером из RabbitMQ.
package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/metrics"
	"github.com/magabrotheeeer/interview-coach/internal/models"
	"github.com/magabrotheeeer/interview-coach/internal/report"
)

// Store доступ к сессиям для задач
type Store interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	SetFeedback(ctx context.Context, sessionID, feedback string) error
	SetReportURL(ctx context.Context, sessionID, url string) error
}

// FeedbackGenerator генерирует отзыв по парам вопрос-ответ
type FeedbackGenerator interface {
	Generate(ctx context.Context, questions, answers []string) (string, error)
}

// PDFConverter переводит HTML в PDF
type PDFConverter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// Uploader загружает файл и возвращает публичную ссылку
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Pipeline исполнитель задач
type Pipeline struct {
	store         Store
	feedback      FeedbackGenerator
	converter     PDFConverter
	uploader      Uploader
	renderTimeout time.Duration
	metrics       *metrics.Metrics
	log           *slog.Logger
}

// NewPipeline создает исполнитель задач
func NewPipeline(store Store, feedback FeedbackGenerator, converter PDFConverter, uploader Uploader,
	renderTimeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:         store,
		feedback:      feedback,
		converter:     converter,
		uploader:      uploader,
		renderTimeout: renderTimeout,
		metrics:       m,
		log:           log,
	}
}

// Run выполняет задачу task по сессии
func (p *Pipeline) Run(ctx context.Context, task Task, sessionID string) error {
	switch task {
	case TaskFeedback:
		return p.RunFeedback(ctx, sessionID)
	case TaskReport:
		return p.RunReport(ctx, sessionID)
	default:
		return fmt.Errorf("fulfillment.Run: unknown task %q: %w", task, models.ErrValidation)
	}
}

// RunFeedback генерирует отзыв и сохраняет его в сессии.
// При ошибке поле отзыва не меняется.
func (p *Pipeline) RunFeedback(ctx context.Context, sessionID string) (err error) {
	const op = "fulfillment.RunFeedback"
	log := p.log.With(slog.String("op", op), slog.String("session_id", sessionID))
	started := time.Now()
	defer func() {
		p.metrics.TaskFinished(string(TaskFeedback), started, err)
		if err != nil {
			log.Error("feedback task failed", sl.Err(err))
		}
	}()

	session, err := p.completedSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text, err := p.feedback.Generate(ctx, session.Questions, session.Answers)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = p.store.SetFeedback(ctx, sessionID, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("feedback stored", slog.Duration("took", time.Since(started)))
	return nil
}

// RunReport рендерит отчет, конвертирует в PDF, загружает и сохраняет ссылку.
// Ключ объекта детерминирован, повторный запуск перезаписывает файл.
func (p *Pipeline) RunReport(ctx context.Context, sessionID string) (err error) {
	const op = "fulfillment.RunReport"
	log := p.log.With(slog.String("op", op), slog.String("session_id", sessionID))
	started := time.Now()
	defer func() {
		p.metrics.TaskFinished(string(TaskReport), started, err)
		if err != nil {
			log.Error("report task failed", sl.Err(err))
		}
	}()

	session, err := p.completedSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	html, err := report.RenderHTML(session)
	if err != nil {
		return fmt.Errorf("%s: render: %w", op, err)
	}

	renderCtx := ctx
	if p.renderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, p.renderTimeout)
		defer cancel()
	}
	pdf, err := p.converter.Convert(renderCtx, html)
	if err != nil {
		return fmt.Errorf("%s: convert: %w: %w", op, models.ErrUpstream, err)
	}

	url, err := p.uploader.Upload(ctx, report.ObjectKey(session), pdf, "application/pdf")
	if err != nil {
		return fmt.Errorf("%s: upload: %w: %w", op, models.ErrUpstream, err)
	}
	if err = p.store.SetReportURL(ctx, sessionID, url); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("report stored", slog.String("url", url), slog.Int("bytes", len(pdf)))
	return nil
}

func (p *Pipeline) completedSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := p.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted {
		return nil, fmt.Errorf("session is %s: %w", session.Status, models.ErrInvalidState)
	}
	return session, nil
}
