package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/interview-coach/internal/migrations"
	"github.com/magabrotheeeer/interview-coach/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}
	return storage, cleanup
}

// testDataFactory создает тестовые записи напрямую через хранилище
type testDataFactory struct {
	storage *Storage
}

func newTestDataFactory(storage *Storage) *testDataFactory {
	return &testDataFactory{storage: storage}
}

func (f *testDataFactory) createProfile(t *testing.T, email string) string {
	t.Helper()
	id, err := f.storage.CreateProfile(context.Background(), models.Profile{
		Email:        email,
		FullName:     "Test User",
		PasswordHash: "hashedpassword",
	})
	require.NoError(t, err)
	return id
}

func (f *testDataFactory) createSession(t *testing.T, userID string, questions ...string) *models.Session {
	t.Helper()
	if len(questions) == 0 {
		questions = []string{"Q1", "Q2", "Q3"}
	}
	session := &models.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Questions:  questions,
		Answers:    []string{},
		ResumeText: "resume",
		Status:     models.SessionInProgress,
	}
	require.NoError(t, f.storage.CreateSession(context.Background(), session))
	return session
}

func (f *testDataFactory) createOrder(t *testing.T, userID, orderID string) {
	t.Helper()
	err := f.storage.CreatePaymentOrder(context.Background(), &models.PaymentOrder{
		OrderID:  orderID,
		UserID:   userID,
		Amount:   100,
		Currency: "INR",
		Status:   models.PaymentCreated,
		Metadata: map[string]string{"receipt": "premium_" + userID},
	})
	require.NoError(t, err)
}
