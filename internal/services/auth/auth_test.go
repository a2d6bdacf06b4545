package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customjwt "github.com/magabrotheeeer/interview-coach/internal/lib/jwt"
	"github.com/magabrotheeeer/interview-coach/internal/lib/password"
	"github.com/magabrotheeeer/interview-coach/internal/models"
	"github.com/magabrotheeeer/interview-coach/internal/services/auth"
)

// Мок для ProfileRepository
type ProfileRepoMock struct {
	mock.Mock
}

func (m *ProfileRepoMock) CreateProfile(ctx context.Context, p models.Profile) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *ProfileRepoMock) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *ProfileRepoMock) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userID, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		setupMocks func(r *ProfileRepoMock)
		wantID     string
		wantErr    error
	}{
		{
			name:     "successful registration normalizes email",
			email:    "  Test@Example.com ",
			password: "password123",
			setupMocks: func(r *ProfileRepoMock) {
				r.On("CreateProfile", mock.Anything, mock.MatchedBy(func(p models.Profile) bool {
					return p.Email == "test@example.com" &&
						p.FullName == "Test User" &&
						p.PasswordHash != "" && p.PasswordHash != "password123" &&
						!p.PremiumStatus
				})).Return("user-uuid", nil).Once()
			},
			wantID: "user-uuid",
		},
		{
			name:     "duplicate email",
			email:    "test@example.com",
			password: "password123",
			setupMocks: func(r *ProfileRepoMock) {
				r.On("CreateProfile", mock.Anything, mock.Anything).Return("", models.ErrAlreadyExists).Once()
			},
			wantErr: models.ErrAlreadyExists,
		},
		{
			name:       "password too long",
			email:      "test@example.com",
			password:   strings.Repeat("x", password.MaxLength+1),
			setupMocks: func(_ *ProfileRepoMock) {},
			wantErr:    models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(ProfileRepoMock)
			tt.setupMocks(repo)
			svc := auth.New(repo, new(JwtMakerMock))

			id, err := svc.Register(context.Background(), tt.email, tt.password, " Test User ")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, id)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash, err := password.GetHash("correct_password")
	require.NoError(t, err)
	profile := &models.Profile{ID: "user-uuid", Email: "test@example.com", PasswordHash: hash}

	tests := []struct {
		name       string
		password   string
		setupMocks func(r *ProfileRepoMock, j *JwtMakerMock)
		wantToken  string
		wantErr    error
	}{
		{
			name:     "successful login",
			password: "correct_password",
			setupMocks: func(r *ProfileRepoMock, j *JwtMakerMock) {
				r.On("GetProfileByEmail", mock.Anything, "test@example.com").Return(profile, nil).Once()
				j.On("GenerateToken", "user-uuid", "test@example.com").Return("jwt-token", nil).Once()
			},
			wantToken: "jwt-token",
		},
		{
			name:     "wrong password",
			password: "wrong_password",
			setupMocks: func(r *ProfileRepoMock, _ *JwtMakerMock) {
				r.On("GetProfileByEmail", mock.Anything, "test@example.com").Return(profile, nil).Once()
			},
			wantErr: models.ErrUnauthorized,
		},
		{
			name:     "unknown email",
			password: "correct_password",
			setupMocks: func(r *ProfileRepoMock, _ *JwtMakerMock) {
				r.On("GetProfileByEmail", mock.Anything, "test@example.com").Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrUnauthorized,
		},
		{
			name:     "token generation failure",
			password: "correct_password",
			setupMocks: func(r *ProfileRepoMock, j *JwtMakerMock) {
				r.On("GetProfileByEmail", mock.Anything, "test@example.com").Return(profile, nil).Once()
				j.On("GenerateToken", "user-uuid", "test@example.com").Return("", errors.New("sign failed")).Once()
			},
			wantErr: errors.New("sign failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, maker := new(ProfileRepoMock), new(JwtMakerMock)
			tt.setupMocks(repo, maker)
			svc := auth.New(repo, maker)

			token, got, err := svc.Login(context.Background(), "Test@Example.com", tt.password)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(err, tt.wantErr) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				assert.Empty(t, token)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				assert.Equal(t, profile.ID, got.ID)
			}
			repo.AssertExpectations(t)
			maker.AssertExpectations(t)
		})
	}
}

func TestService_ValidateToken(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(j *JwtMakerMock)
		wantUserID string
		wantErr    bool
	}{
		{
			name: "valid token",
			setupMocks: func(j *JwtMakerMock) {
				j.On("ParseToken", "tok").Return(&customjwt.CustomClaims{
					Email:            "test@example.com",
					RegisteredClaims: jwt.RegisteredClaims{Subject: "user-uuid"},
				}, nil).Once()
			},
			wantUserID: "user-uuid",
		},
		{
			name: "invalid token",
			setupMocks: func(j *JwtMakerMock) {
				j.On("ParseToken", "tok").Return(nil, jwt.ErrTokenExpired).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maker := new(JwtMakerMock)
			tt.setupMocks(maker)

			userID, err := auth.New(new(ProfileRepoMock), maker).ValidateToken(context.Background(), "tok")
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrUnauthorized)
				assert.ErrorIs(t, err, jwt.ErrTokenExpired)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUserID, userID)
		})
	}
}

func TestService_Profile(t *testing.T) {
	repo := new(ProfileRepoMock)
	repo.On("GetProfile", mock.Anything, "missing").Return(nil, models.ErrNotFound).Once()

	_, err := auth.New(repo, new(JwtMakerMock)).Profile(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
