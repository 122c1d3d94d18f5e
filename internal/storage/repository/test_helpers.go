package repository

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
// и разворачивает в ней схему сервиса.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2),
				wait.ForListeningPort(nat.Port("5432/tcp")),
			).WithStartupTimeoutDefault(3*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for range 10 {
		storage, err = New(dsn)
		if err == nil && storage.DB.Ping() == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	_, err = storage.DB.Exec(`
        CREATE EXTENSION IF NOT EXISTS "pgcrypto";

        CREATE TABLE users (
            uid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            username TEXT NOT NULL,
            email TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            hwid TEXT,
            is_banned BOOLEAN NOT NULL DEFAULT FALSE,
            is_active BOOLEAN NOT NULL DEFAULT FALSE,
            last_activity TIMESTAMPTZ,
            uac_level INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CONSTRAINT users_username_key UNIQUE (username),
            CONSTRAINT users_email_key UNIQUE (email)
        );

        CREATE TABLE licenses (
            id SERIAL PRIMARY KEY,
            license_key TEXT NOT NULL,
            subscription_name TEXT NOT NULL,
            duration_days INTEGER NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT FALSE,
            username TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            end_date TIMESTAMPTZ,
            hwid TEXT,
            CONSTRAINT licenses_license_key_key UNIQUE (license_key)
        );

        CREATE TABLE used_licenses (
            id INTEGER PRIMARY KEY,
            license_key TEXT NOT NULL,
            subscription_name TEXT NOT NULL,
            duration_days INTEGER NOT NULL,
            is_active BOOLEAN NOT NULL,
            username TEXT,
            created_at TIMESTAMPTZ NOT NULL,
            end_date TIMESTAMPTZ,
            hwid TEXT
        );

        CREATE TABLE subscriptions (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL REFERENCES users (username) ON DELETE CASCADE,
            subscription_name TEXT NOT NULL,
            start_date TIMESTAMPTZ NOT NULL,
            end_date TIMESTAMPTZ NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        );

        CREATE UNIQUE INDEX subscriptions_active_per_user_idx
            ON subscriptions (username, subscription_name) WHERE is_active = TRUE;

        CREATE TABLE hwid_blacklist (
            hwid TEXT PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
    `)
	require.NoError(t, err, "Failed to create schema")

	cleanup := func() {
		_ = storage.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его UID
func (f *TestDataFactory) CreateUser(t *testing.T, username, email, passwordHash string) string {
	uid := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (uid, username, email, password_hash)
		VALUES ($1, $2, $3, $4)`,
		uid, username, email, passwordHash)
	require.NoError(t, err)
	return uid
}

// CreateUserWithHwid создает тестового пользователя с привязанным HWID
func (f *TestDataFactory) CreateUserWithHwid(t *testing.T, username, email, passwordHash, hwid string) string {
	var uid string
	err := f.storage.DB.QueryRow(`INSERT INTO users (username, email, password_hash, hwid)
		VALUES ($1, $2, $3, $4) RETURNING uid`,
		username, email, passwordHash, hwid).Scan(&uid)
	require.NoError(t, err)
	return uid
}

// CreateActiveUser создает тестового пользователя с заданным временем последней активности
func (f *TestDataFactory) CreateActiveUser(t *testing.T, username, email string, lastActivity time.Time) string {
	var uid string
	err := f.storage.DB.QueryRow(`INSERT INTO users (username, email, password_hash, is_active, last_activity)
		VALUES ($1, $2, 'hash', TRUE, $3) RETURNING uid`,
		username, email, lastActivity).Scan(&uid)
	require.NoError(t, err)
	return uid
}

// CreateLicense создает тестовую лицензию и возвращает её ID
func (f *TestDataFactory) CreateLicense(t *testing.T, licenseKey, subscriptionName string, durationDays int) int {
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO licenses (license_key, subscription_name, duration_days)
		VALUES ($1, $2, $3) RETURNING id`,
		licenseKey, subscriptionName, durationDays).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateActiveLicense создает активированную лицензию с заданной датой окончания
func (f *TestDataFactory) CreateActiveLicense(t *testing.T, licenseKey, subscriptionName, username string,
	durationDays int, endDate time.Time) int {
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO licenses
		(license_key, subscription_name, duration_days, is_active, username, end_date)
		VALUES ($1, $2, $3, TRUE, $4, $5) RETURNING id`,
		licenseKey, subscriptionName, durationDays, username, endDate).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateSubscription создает тестовую подписку
func (f *TestDataFactory) CreateSubscription(t *testing.T, username, subscriptionName string,
	startDate, endDate time.Time, isActive bool) int {
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(username, subscription_name, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		username, subscriptionName, startDate, endDate, isActive).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// CountSubscriptions возвращает число подписок пользователя на указанное название
func (v *TestVerification) CountSubscriptions(t *testing.T, username, subscriptionName string) int {
	var count int
	err := v.storage.DB.QueryRow(
		`SELECT COUNT(*) FROM subscriptions WHERE username = $1 AND subscription_name = $2`,
		username, subscriptionName).Scan(&count)
	require.NoError(t, err)
	return count
}

// SubscriptionEndDate возвращает дату окончания активной подписки
func (v *TestVerification) SubscriptionEndDate(t *testing.T, username, subscriptionName string) time.Time {
	var endDate time.Time
	err := v.storage.DB.QueryRow(
		`SELECT end_date FROM subscriptions
		 WHERE username = $1 AND subscription_name = $2 AND is_active = TRUE`,
		username, subscriptionName).Scan(&endDate)
	require.NoError(t, err)
	return endDate
}

// LicenseExists проверяет наличие лицензии в живой таблице
func (v *TestVerification) LicenseExists(t *testing.T, licenseKey string) bool {
	var exists bool
	err := v.storage.DB.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM licenses WHERE license_key = $1)`, licenseKey).Scan(&exists)
	require.NoError(t, err)
	return exists
}

// UsedLicenseExists проверяет наличие лицензии в архиве использованных
func (v *TestVerification) UsedLicenseExists(t *testing.T, licenseKey string) bool {
	var exists bool
	err := v.storage.DB.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM used_licenses WHERE license_key = $1)`, licenseKey).Scan(&exists)
	require.NoError(t, err)
	return exists
}

// UserIsActive возвращает признак активности пользователя
func (v *TestVerification) UserIsActive(t *testing.T, username string) bool {
	var isActive bool
	err := v.storage.DB.QueryRow(
		`SELECT is_active FROM users WHERE username = $1`, username).Scan(&isActive)
	require.NoError(t, err)
	return isActive
}
