// Package services содержит бизнес-логику работы с лицензионными ключами:
// генерацию партий, активацию, продление и административные операции.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/license-control/internal/lib/licensekey"
	"github.com/magabrotheeeer/license-control/internal/lib/sl"
	"github.com/magabrotheeeer/license-control/internal/metrics"
	"github.com/magabrotheeeer/license-control/internal/models"
)

// LicenseRepository описывает контракт для работы с лицензиями в базе данных.
type LicenseRepository interface {
	CreateLicense(ctx context.Context, license models.License) (int, error)
	LicenseKeyExists(ctx context.Context, licenseKey string) (bool, error)
	ActivateLicense(ctx context.Context, username, licenseKey string) (time.Time, error)
	ExtendLicense(ctx context.Context, username, newLicenseKey string) (time.Time, error)
	ResetLicenseHwid(ctx context.Context, licenseKey string) error
	ListLicensesBySubscription(ctx context.Context, subscriptionName string) ([]*models.License, error)
	ListLicensesByUsername(ctx context.Context, username string) ([]*models.License, error)
	ListLicensesByStatus(ctx context.Context, isActive bool) ([]*models.License, error)
	DeleteUsedLicense(ctx context.Context, licenseKey string) error
}

// Cache описывает контракт кэша для читающих операций.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// LicenseService реализует операции над лицензионными ключами.
type LicenseService struct {
	repo   LicenseRepository
	keygen *licensekey.Generator
	cache  Cache
	log    *slog.Logger
}

// NewLicenseService создает новый экземпляр LicenseService.
func NewLicenseService(repo LicenseRepository, cache Cache, log *slog.Logger) *LicenseService {
	return &LicenseService{
		repo:   repo,
		keygen: licensekey.NewGenerator(repo.LicenseKeyExists, log),
		cache:  cache,
		log:    log,
	}
}

// GenerateBatch создает quantity новых неактивных ключей для подписки.
// При ошибке на середине партии возвращает уже созданные ключи вместе с ошибкой.
func (s *LicenseService) GenerateBatch(ctx context.Context, subscriptionName string, durationDays, quantity int) ([]string, error) {
	created := make([]string, 0, quantity)
	for i := 0; i < quantity; i++ {
		key, err := s.keygen.Generate(ctx)
		if err != nil {
			return created, fmt.Errorf("generated %d of %d keys: %w", len(created), quantity, err)
		}
		_, err = s.repo.CreateLicense(ctx, models.License{
			LicenseKey:       key,
			SubscriptionName: subscriptionName,
			DurationDays:     durationDays,
		})
		if err != nil {
			return created, fmt.Errorf("generated %d of %d keys: %w", len(created), quantity, err)
		}
		created = append(created, key)
		metrics.LicensesGenerated.Inc()
	}

	s.log.Info("generated license keys",
		slog.String("subscription_name", subscriptionName),
		slog.Int("count", len(created)))

	s.invalidateSubscriptionList(subscriptionName)
	return created, nil
}

// Activate привязывает ключ к пользователю и возвращает дату окончания подписки.
func (s *LicenseService) Activate(ctx context.Context, username, licenseKey string) (time.Time, error) {
	if !licensekey.Valid(licenseKey) {
		return time.Time{}, models.ErrLicenseNotFound
	}

	endDate, err := s.repo.ActivateLicense(ctx, username, licenseKey)
	if err != nil {
		return time.Time{}, err
	}
	metrics.LicensesActivated.Inc()

	s.log.Info("activated license key",
		slog.String("username", username),
		slog.Time("end_date", endDate))

	s.invalidateActiveSubscriptions(username)
	return endDate, nil
}

// Extend продлевает текущую подписку пользователя новым ключом той же подписки.
// Израсходованный ключ удаляется.
func (s *LicenseService) Extend(ctx context.Context, username, newLicenseKey string) (time.Time, error) {
	if !licensekey.Valid(newLicenseKey) {
		return time.Time{}, models.ErrLicenseNotFound
	}

	endDate, err := s.repo.ExtendLicense(ctx, username, newLicenseKey)
	if err != nil {
		return time.Time{}, err
	}

	s.log.Info("extended license",
		slog.String("username", username),
		slog.Time("end_date", endDate))

	s.invalidateActiveSubscriptions(username)
	return endDate, nil
}

// ResetHwid сбрасывает привязку устройства у лицензии.
func (s *LicenseService) ResetHwid(ctx context.Context, licenseKey string) error {
	return s.repo.ResetLicenseHwid(ctx, licenseKey)
}

// ListBySubscription возвращает все лицензии подписки, используя кэш.
func (s *LicenseService) ListBySubscription(ctx context.Context, subscriptionName string) ([]*models.License, error) {
	var result []*models.License
	cacheKey := fmt.Sprintf("licenses:subscription:%s", subscriptionName)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.ListLicensesBySubscription(ctx, subscriptionName)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, result, 5*time.Minute); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// ListByUsername возвращает все лицензии пользователя.
func (s *LicenseService) ListByUsername(ctx context.Context, username string) ([]*models.License, error) {
	return s.repo.ListLicensesByUsername(ctx, username)
}

// ListByStatus возвращает лицензии по признаку активности.
func (s *LicenseService) ListByStatus(ctx context.Context, isActive bool) ([]*models.License, error) {
	return s.repo.ListLicensesByStatus(ctx, isActive)
}

// DeleteUsed удаляет запись из архива использованных лицензий.
func (s *LicenseService) DeleteUsed(ctx context.Context, licenseKey string) error {
	return s.repo.DeleteUsedLicense(ctx, licenseKey)
}

func (s *LicenseService) invalidateSubscriptionList(subscriptionName string) {
	cacheKey := fmt.Sprintf("licenses:subscription:%s", subscriptionName)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}
}

func (s *LicenseService) invalidateActiveSubscriptions(username string) {
	cacheKey := fmt.Sprintf("subscriptions:active:%s", username)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
