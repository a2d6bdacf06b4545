// Package session реализует жизненный цикл сессии интервью: создание,
// пошаговую фиксацию ответов, завершение и отказ. Переходы выполняются
// условными UPDATE в хранилище, сервис только классифицирует отказы.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/interview-coach/internal/config"
	"github.com/magabrotheeeer/interview-coach/internal/lib/sl"
	"github.com/magabrotheeeer/interview-coach/internal/metrics"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// Repository методы хранилища сессий
type Repository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context, userID string) ([]*models.Session, error)
	AppendAnswer(ctx context.Context, sessionID, userID string, index int, text string) (bool, error)
	CompleteSession(ctx context.Context, sessionID, userID string, answers []string) (*models.Session, error)
	AbandonSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
	SetSessionFeedback(ctx context.Context, sessionID, feedback string) (bool, error)
	SetSessionReportURL(ctx context.Context, sessionID, url string) (bool, error)
}

// Cache кеш сессий
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Dispatcher ставит фоновые задачи по завершенной сессии
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string) error
}

// Service сервис сессий интервью
type Service struct {
	repo       Repository
	cache      Cache
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	log        *slog.Logger
	cacheTTL   time.Duration
}

// New создает сервис. Диспетчер задается отдельно через SetDispatcher,
// так как конвейер задач сам зависит от сервиса.
func New(repo Repository, cache Cache, log *slog.Logger, m *metrics.Metrics, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		metrics:  m,
		log:      log,
		cacheTTL: cacheTTL,
	}
}

// SetDispatcher задает диспетчер фоновых задач
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

func cacheKey(sessionID string) string {
	return "session:" + sessionID
}

// Create создает сессию в состоянии in_progress
func (s *Service) Create(ctx context.Context, userID string, questions []string, resumeText string) (*models.Session, error) {
	const op = "services.session.Create"

	if len(questions) == 0 {
		return nil, fmt.Errorf("%s: no questions: %w", op, models.ErrValidation)
	}
	if len(questions) > config.MaxQuestionCount {
		return nil, fmt.Errorf("%s: more than %d questions: %w", op, config.MaxQuestionCount, models.ErrValidation)
	}
	cleaned := make([]string, len(questions))
	for i, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, fmt.Errorf("%s: question %d is blank: %w", op, i, models.ErrValidation)
		}
		cleaned[i] = q
	}

	session := &models.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Questions:  cleaned,
		Answers:    []string{},
		ResumeText: resumeText,
		Status:     models.SessionInProgress,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.SessionTransition(string(models.SessionInProgress))
	s.log.Info("session created",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.Int("questions", len(cleaned)))
	return session, nil
}

// Get возвращает сессию владельцу. Чужая, отсутствующая или с некорректным
// идентификатором сессия неотличимы и дают ErrNotFound.
func (s *Service) Get(ctx context.Context, sessionID, requestingUserID string) (*models.Session, error) {
	const op = "services.session.Get"

	if !validID(sessionID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var cached models.Session
	found, err := s.cache.Get(ctx, cacheKey(sessionID), &cached)
	if err != nil {
		s.log.Warn("failed to read session from cache", slog.String("session_id", sessionID), sl.Err(err))
	}
	session := &cached
	if !found {
		session, err = s.repo.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if settled(session) {
			s.store(ctx, session)
		}
	}

	if !session.OwnedBy(requestingUserID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return session, nil
}

// Load читает сессию из хранилища мимо кеша, без проверки владельца.
// Используется фоновыми задачами, которым нужен статус сразу после Complete.
func (s *Service) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "services.session.Load"

	if !validID(sessionID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// List история сессий пользователя, новые первыми
func (s *Service) List(ctx context.Context, userID string) ([]*models.Session, error) {
	const op = "services.session.List"

	sessions, err := s.repo.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// RecordAnswer дописывает ответ на вопрос index. Принимается только следующий
// по порядку индекс; повтор последнего записанного ответа с тем же текстом
// ничего не меняет.
func (s *Service) RecordAnswer(ctx context.Context, sessionID, userID string, index int, text string) error {
	const op = "services.session.RecordAnswer"

	if !validID(sessionID) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if index < 0 {
		return fmt.Errorf("%s: negative index %d: %w", op, index, models.ErrValidation)
	}

	applied, err := s.repo.AppendAnswer(ctx, sessionID, userID, index, text)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if applied {
		s.invalidate(ctx, sessionID)
		s.log.Debug("answer recorded", slog.String("session_id", sessionID), slog.Int("index", index))
		return nil
	}

	current, err := s.fresh(ctx, sessionID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if current.Status != models.SessionInProgress {
		return fmt.Errorf("%s: session is %s: %w", op, current.Status, models.ErrInvalidState)
	}
	last := len(current.Answers) - 1
	if index == last && current.Answers[last] == text {
		return nil
	}
	if index >= len(current.Questions) {
		return fmt.Errorf("%s: index %d out of range for %d questions: %w",
			op, index, len(current.Questions), models.ErrValidation)
	}
	return fmt.Errorf("%s: expected index %d, got %d: %w", op, current.NextIndex(), index, models.ErrValidation)
}

// Complete завершает сессию. Пустой answers означает завершение с уже
// записанными ответами. После успешного перехода ставит задачи на отзыв
// и отчет, не дожидаясь их выполнения.
func (s *Service) Complete(ctx context.Context, sessionID, userID string, answers []string) (*models.Session, error) {
	const op = "services.session.Complete"

	current, err := s.fresh(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.Status != models.SessionInProgress {
		return nil, fmt.Errorf("%s: session is %s: %w", op, current.Status, models.ErrInvalidState)
	}
	if len(answers) == 0 {
		answers = current.Answers
	}
	if len(answers) != len(current.Questions) {
		return nil, fmt.Errorf("%s: got %d answers for %d questions: %w",
			op, len(answers), len(current.Questions), models.ErrValidation)
	}

	completed, err := s.repo.CompleteSession(ctx, sessionID, userID, answers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if completed == nil {
		// проиграли гонку с параллельным Complete или Abandon
		return nil, fmt.Errorf("%s: %w", op, s.classify(ctx, sessionID, userID))
	}

	s.invalidate(ctx, sessionID)
	s.metrics.SessionTransition(string(models.SessionCompleted))
	s.log.Info("session completed", slog.String("session_id", sessionID), slog.String("user_id", userID))

	s.dispatch(ctx, sessionID)
	return completed, nil
}

// Abandon переводит сессию в abandoned
func (s *Service) Abandon(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	const op = "services.session.Abandon"

	if !validID(sessionID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	abandoned, err := s.repo.AbandonSession(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if abandoned == nil {
		return nil, fmt.Errorf("%s: %w", op, s.classify(ctx, sessionID, userID))
	}

	s.invalidate(ctx, sessionID)
	s.metrics.SessionTransition(string(models.SessionAbandoned))
	s.log.Info("session abandoned", slog.String("session_id", sessionID), slog.String("user_id", userID))
	return abandoned, nil
}

// SetFeedback перезаписывает отзыв завершенной сессии
func (s *Service) SetFeedback(ctx context.Context, sessionID, feedback string) error {
	const op = "services.session.SetFeedback"

	applied, err := s.repo.SetSessionFeedback(ctx, sessionID, feedback)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		return fmt.Errorf("%s: %w", op, s.classify(ctx, sessionID, ""))
	}
	s.invalidate(ctx, sessionID)
	return nil
}

// SetReportURL перезаписывает ссылку на отчет завершенной сессии
func (s *Service) SetReportURL(ctx context.Context, sessionID, url string) error {
	const op = "services.session.SetReportURL"

	applied, err := s.repo.SetSessionReportURL(ctx, sessionID, url)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		return fmt.Errorf("%s: %w", op, s.classify(ctx, sessionID, ""))
	}
	s.invalidate(ctx, sessionID)
	return nil
}

// fresh читает сессию мимо кеша и проверяет владельца
func (s *Service) fresh(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	if !validID(sessionID) {
		return nil, models.ErrNotFound
	}
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(userID) {
		return nil, models.ErrNotFound
	}
	return session, nil
}

// classify объясняет, почему условный переход не применился.
// Пустой userID отключает проверку владельца.
func (s *Service) classify(ctx context.Context, sessionID, userID string) error {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if userID != "" && !session.OwnedBy(userID) {
		return models.ErrNotFound
	}
	return fmt.Errorf("session is %s: %w", session.Status, models.ErrInvalidState)
}

func (s *Service) dispatch(ctx context.Context, sessionID string) {
	if s.dispatcher == nil {
		s.log.Warn("fulfillment dispatcher is not configured", slog.String("session_id", sessionID))
		return
	}
	if err := s.dispatcher.Dispatch(ctx, sessionID); err != nil {
		s.log.Error("failed to dispatch fulfillment", slog.String("session_id", sessionID), sl.Err(err))
	}
}

// settled сообщает, что сессия больше не меняется без явного повтора задачи.
// В кеш попадают только такие сессии.
func settled(session *models.Session) bool {
	switch session.Status {
	case models.SessionAbandoned:
		return true
	case models.SessionCompleted:
		return session.Feedback != nil && session.PDFReportURL != nil
	default:
		return false
	}
}

func (s *Service) store(ctx context.Context, session *models.Session) {
	if err := s.cache.Set(ctx, cacheKey(session.ID), session, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache session", slog.String("session_id", session.ID), sl.Err(err))
	}
}

func (s *Service) invalidate(ctx context.Context, sessionID string) {
	if err := s.cache.Invalidate(ctx, cacheKey(sessionID)); err != nil {
		s.log.Warn("failed to invalidate session cache", slog.String("session_id", sessionID), sl.Err(err))
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
