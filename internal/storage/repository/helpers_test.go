package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/wisepicks/internal/migrations"
	"github.com/magabrotheeeer/wisepicks/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его ID
func (f *TestDataFactory) CreateUser(t *testing.T, email, nickname, role string) string {
	t.Helper()
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO users (email, nickname, password_hash, role)
		VALUES ($1, $2, 'hash', $3) RETURNING id`, email, nickname, role).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateTip создает тестовый прогноз
func (f *TestDataFactory) CreateTip(t *testing.T, match string, premium bool, result string, createdAt time.Time) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO tips (match, sport, prediction, odds, is_premium, result, created_at)
		VALUES ($1, 'football', 'home win', 2.1, $2, $3, $4) RETURNING id`,
		match, premium, result, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreatePayment создает ожидающий платеж
func (f *TestDataFactory) CreatePayment(t *testing.T, userID, chargeID string, duration int) *models.Payment {
	t.Helper()
	p, err := f.storage.CreatePayment(context.Background(), models.Payment{
		UserID:    userID,
		ChargeID:  chargeID,
		Amount:    29.99,
		Currency:  "USD",
		Plan:      "monthly",
		Duration:  duration,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return p
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// CountRows возвращает число строк в таблице по условию
func (v *TestVerification) CountRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, v.storage.DB.QueryRow(query, args...).Scan(&n))
	return n
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции проекта
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}
