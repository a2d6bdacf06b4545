package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

const sessionColumns = `id, user_id, questions, answers, resume_text, status,
	feedback, pdf_report_url, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateSession вставляет новую сессию в состоянии in_progress.
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	const op = "storage.CreateSession"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	questions, err := json.Marshal(session.Questions)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	answers, err := json.Marshal(nonNil(session.Answers))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO interview_sessions (id, user_id, questions, answers, resume_text, status)
			  VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		session.ID, session.UserID, string(questions), string(answers),
		session.ResumeText, string(session.Status)).Scan(&session.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSession возвращает сессию по ID без проверки владельца.
func (s *Storage) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "storage.GetSession"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// ListSessions возвращает сессии пользователя, новые первыми.
func (s *Storage) ListSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	const op = "storage.ListSessions"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+sessionColumns+`
			  FROM interview_sessions
			  WHERE user_id = $1
			  ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AppendAnswer дописывает ответ, только если index равен числу уже записанных
// ответов и сессия в процессе. Возвращает false, если условие не выполнено.
func (s *Storage) AppendAnswer(ctx context.Context, sessionID, userID string, index int, text string) (bool, error) {
	const op = "storage.AppendAnswer"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `UPDATE interview_sessions
			  SET answers = answers || jsonb_build_array($4::text)
			  WHERE id = $1 AND user_id = $2
			    AND status = 'in_progress'
			    AND jsonb_array_length(answers) = $3
			    AND $3 < jsonb_array_length(questions)`
	return s.execApplied(ctx, op, query, sessionID, userID, index, text)
}

// CompleteSession переводит сессию in_progress в completed с финальными ответами.
// Возвращает nil без ошибки, если сессия уже не в процессе или число ответов не совпало.
func (s *Storage) CompleteSession(ctx context.Context, sessionID, userID string, answers []string) (*models.Session, error) {
	const op = "storage.CompleteSession"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(nonNil(answers))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE interview_sessions
			  SET status = 'completed', completed_at = NOW(), answers = $3::jsonb
			  WHERE id = $1 AND user_id = $2
			    AND status = 'in_progress'
			    AND jsonb_array_length(questions) = $4
			  RETURNING ` + sessionColumns
	return s.transition(ctx, op, query, sessionID, userID, string(raw), len(answers))
}

// AbandonSession переводит сессию in_progress в abandoned.
func (s *Storage) AbandonSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	const op = "storage.AbandonSession"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE interview_sessions
			  SET status = 'abandoned'
			  WHERE id = $1 AND user_id = $2 AND status = 'in_progress'
			  RETURNING ` + sessionColumns
	return s.transition(ctx, op, query, sessionID, userID)
}

// SetSessionFeedback перезаписывает отзыв завершенной сессии.
func (s *Storage) SetSessionFeedback(ctx context.Context, sessionID, feedback string) (bool, error) {
	const op = "storage.SetSessionFeedback"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `UPDATE interview_sessions SET feedback = $2
			  WHERE id = $1 AND status = 'completed'`
	return s.execApplied(ctx, op, query, sessionID, feedback)
}

// SetSessionReportURL перезаписывает ссылку на PDF-отчет завершенной сессии.
func (s *Storage) SetSessionReportURL(ctx context.Context, sessionID, url string) (bool, error) {
	const op = "storage.SetSessionReportURL"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `UPDATE interview_sessions SET pdf_report_url = $2
			  WHERE id = $1 AND status = 'completed'`
	return s.execApplied(ctx, op, query, sessionID, url)
}

func (s *Storage) transition(ctx context.Context, op, query string, args ...any) (*models.Session, error) {
	session, err := scanSession(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

func (s *Storage) execApplied(ctx context.Context, op, query string, args ...any) (bool, error) {
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session             models.Session
		questions, answers  []byte
		status              string
		feedback, reportURL sql.NullString
		completedAt         sql.NullTime
	)
	if err := row.Scan(&session.ID, &session.UserID, &questions, &answers, &session.ResumeText,
		&status, &feedback, &reportURL, &session.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &session.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal(answers, &session.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	session.Answers = nonNil(session.Answers)
	session.Status = models.SessionStatus(status)
	if feedback.Valid {
		session.Feedback = &feedback.String
	}
	if reportURL.Valid {
		session.PDFReportURL = &reportURL.String
	}
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	return &session, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
