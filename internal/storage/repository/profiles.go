package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/interview-coach/internal/models"
)

const profileColumns = `id, email, full_name, password_hash, premium_status,
	premium_purchased_at, created_at, updated_at`

// CreateProfile сохраняет нового пользователя и возвращает его ID.
func (s *Storage) CreateProfile(ctx context.Context, p models.Profile) (string, error) {
	const op = "storage.CreateProfile"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	query := `INSERT INTO profiles (email, full_name, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var id string
	if err := s.DB.QueryRowContext(ctx, query, p.Email, p.FullName, p.PasswordHash).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetProfile возвращает профиль по ID.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetProfileByEmail возвращает профиль по email.
func (s *Storage) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	const op = "storage.GetProfileByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPremiumStatus читает только флаг премиума.
func (s *Storage) GetPremiumStatus(ctx context.Context, userID string) (bool, error) {
	const op = "storage.GetPremiumStatus"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	var premium bool
	err := s.DB.QueryRowContext(ctx, `SELECT premium_status FROM profiles WHERE id = $1`, userID).Scan(&premium)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return premium, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	var purchasedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.PremiumStatus,
		&purchasedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if purchasedAt.Valid {
		p.PremiumPurchasedAt = &purchasedAt.Time
	}
	return &p, nil
}
