package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/studysnap-backend/internal/migrations"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateSubscription вставляет строку подписки напрямую в БД
func (f *TestDataFactory) CreateSubscription(t *testing.T, sub models.Subscription) int {
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(user_uid, processor_customer_id, processor_subscription_id,
		 status, plan_type, current_period_start, current_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		sub.UserUID, sub.ProcessorCustomerID, sub.ProcessorSubscriptionID,
		sub.Status, string(sub.PlanType), sub.CurrentPeriodStart, sub.CurrentPeriodEnd).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateProfile вставляет строку профиля напрямую в БД
func (f *TestDataFactory) CreateProfile(t *testing.T, userUID, customerID string, isPremium bool) {
	_, err := f.storage.DB.Exec(`INSERT INTO profiles (user_uid, processor_customer_id, is_premium)
		VALUES ($1, $2, $3)`,
		userUID, customerID, isPremium)
	require.NoError(t, err)
}

// GetTestSubscription возвращает стандартные тестовые данные подписки
func GetTestSubscription(userUID string) models.Subscription {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.Subscription{
		UserUID:                 userUID,
		ProcessorCustomerID:     "cus_" + uuid.New().String()[:8],
		ProcessorSubscriptionID: "sub_" + uuid.New().String()[:8],
		Status:                  models.StatusActive,
		PlanType:                models.PlanMonthly,
		CurrentPeriodStart:      start,
		CurrentPeriodEnd:        start.AddDate(0, 1, 0),
	}
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifySubscriptionStatus проверяет статус строки подписки в БД
func (v *TestVerification) VerifySubscriptionStatus(t *testing.T, processorSubscriptionID, expectedStatus string) {
	var status string
	err := v.storage.DB.QueryRow(
		"SELECT status FROM subscriptions WHERE processor_subscription_id = $1",
		processorSubscriptionID).Scan(&status)
	require.NoError(t, err)
	require.Equal(t, expectedStatus, status)
}

// VerifySubscriptionCount проверяет число строк по ключу провайдера
func (v *TestVerification) VerifySubscriptionCount(t *testing.T, processorSubscriptionID string, expected int) {
	var count int
	err := v.storage.DB.QueryRow(
		"SELECT COUNT(*) FROM subscriptions WHERE processor_subscription_id = $1",
		processorSubscriptionID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}

// VerifyProfilePremium проверяет зеркало is_premium профиля
func (v *TestVerification) VerifyProfilePremium(t *testing.T, userUID string, expected bool) {
	var isPremium bool
	err := v.storage.DB.QueryRow(
		"SELECT is_premium FROM profiles WHERE user_uid = $1", userUID).Scan(&isPremium)
	require.NoError(t, err)
	require.Equal(t, expected, isPremium)
}

// setupTestDatabase поднимает контейнер PostgreSQL и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute)),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	require.NoError(t, migrations.Run(storage.DB, "../../../migrations"), "failed to apply migrations")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
	}

	return storage, cleanup
}
