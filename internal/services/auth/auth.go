// Package auth отвечает за регистрацию, вход и проверку bearer-токенов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/interview-coach/internal/lib/jwt"
	"github.com/magabrotheeeer/interview-coach/internal/lib/password"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// ProfileRepository описывает контракт для работы с профилями в базе данных.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, p models.Profile) (string, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// Service сервис аутентификации
type Service struct {
	profiles ProfileRepository
	jwtMaker jwt.Maker
}

// New создает новый экземпляр Service.
func New(profiles ProfileRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		profiles: profiles,
		jwtMaker: jwtMaker,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает профиль без премиума и возвращает его ID.
func (s *Service) Register(ctx context.Context, email, rawPassword, fullName string) (string, error) {
	const op = "services.auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return "", fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.profiles.CreateProfile(ctx, models.Profile{
		Email:        normalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hashed,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Login проверяет пароль и выдает токен. Неизвестный email и неверный
// пароль неотличимы для клиента.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, *models.Profile, error) {
	const op = "services.auth.Login"

	profile, err := s.profiles.GetProfileByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(profile.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	token, err := s.jwtMaker.GenerateToken(profile.ID, profile.Email)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, profile, nil
}

// ValidateToken проверяет токен и возвращает ID пользователя.
func (s *Service) ValidateToken(_ context.Context, token string) (string, error) {
	const op = "services.auth.ValidateToken"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, models.ErrUnauthorized, err)
	}
	return claims.UserID(), nil
}

// Profile возвращает профиль пользователя.
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "services.auth.Profile"

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return profile, nil
}
