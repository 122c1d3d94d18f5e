package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/license-control/internal/models"
)

const licenseColumns = `id, license_key, subscription_name, duration_days, is_active,
			      username, created_at, end_date, hwid`

// CreateLicense вставляет новую неактивную лицензию и возвращает её ID.
func (s *Storage) CreateLicense(ctx context.Context, license models.License) (int, error) {
	const op = "storage.CreateLicense"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO licenses (license_key, subscription_name, duration_days, is_active)
			  VALUES ($1, $2, $3, FALSE)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		license.LicenseKey, license.SubscriptionName, license.DurationDays).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// LicenseKeyExists сообщает, занят ли лицензионный ключ.
func (s *Storage) LicenseKeyExists(ctx context.Context, licenseKey string) (bool, error) {
	const op = "storage.LicenseKeyExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM licenses WHERE license_key = $1)`
	if err := s.DB.QueryRowContext(ctx, query, licenseKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ActivateLicense активирует лицензию для пользователя в одной транзакции:
// блокирует неактивную лицензию по ключу, находит пользователя, продлевает
// существующую активную подписку с тем же названием либо создаёт новую,
// затем помечает лицензию активной. Возвращает новую дату окончания.
//
// Предикат is_active = FALSE вместе с блокировкой строки гарантирует
// однократную активацию при конкурентных запросах с одним ключом.
func (s *Storage) ActivateLicense(ctx context.Context, username, licenseKey string) (time.Time, error) {
	const op = "storage.ActivateLicense"
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var licenseID, durationDays int
	var subscriptionName string
	query := `SELECT id, subscription_name, duration_days
			  FROM licenses
			  WHERE license_key = $1 AND is_active = FALSE
			  FOR UPDATE`
	if err := tx.QueryRowContext(ctx, query, licenseKey).Scan(
		&licenseID, &subscriptionName, &durationDays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrLicenseNotFound)
		}
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	var userUID string
	if err := tx.QueryRowContext(ctx,
		`SELECT uid FROM users WHERE username = $1`, username).Scan(&userUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
		}
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	var endDate time.Time
	var subscriptionID int
	var currentEnd time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT id, end_date
		 FROM subscriptions
		 WHERE username = $1 AND subscription_name = $2 AND is_active = TRUE
		 FOR UPDATE`, username, subscriptionName).Scan(&subscriptionID, &currentEnd)
	switch {
	case err == nil:
		endDate = currentEnd.AddDate(0, 0, durationDays)
		if _, err := tx.ExecContext(ctx,
			`UPDATE subscriptions SET end_date = $1 WHERE id = $2`,
			endDate, subscriptionID); err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now()
		endDate = now.AddDate(0, 0, durationDays)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subscriptions (username, subscription_name, start_date, end_date, is_active)
			 VALUES ($1, $2, $3, $4, TRUE)`,
			username, subscriptionName, now, endDate); err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE licenses SET is_active = TRUE, end_date = $1, username = $2 WHERE id = $3`,
		endDate, username, licenseID); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return endDate, nil
}

// ExtendLicense продлевает текущую активную лицензию пользователя за счёт
// второго неиспользованного ключа того же названия подписки. Израсходованный
// ключ удаляется и становится непригодным навсегда; в архив использованных
// лицензий он не попадает. Всё выполняется в одной транзакции.
func (s *Storage) ExtendLicense(ctx context.Context, username, newLicenseKey string) (time.Time, error) {
	const op = "storage.ExtendLicense"
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var currentID int
	var currentName string
	var currentEnd time.Time
	query := `SELECT id, subscription_name, end_date
			  FROM licenses
			  WHERE username = $1 AND is_active = TRUE
			  ORDER BY id
			  LIMIT 1
			  FOR UPDATE`
	if err := tx.QueryRowContext(ctx, query, username).Scan(
		&currentID, &currentName, &currentEnd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrLicenseNotFound)
		}
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	var newID, newDuration int
	var newName string
	query = `SELECT id, subscription_name, duration_days
			 FROM licenses
			 WHERE license_key = $1 AND is_active = FALSE
			 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, query, newLicenseKey).Scan(
		&newID, &newName, &newDuration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrLicenseNotFound)
		}
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if currentName != newName {
		return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrSubscriptionMismatch)
	}

	newEndDate := currentEnd.AddDate(0, 0, newDuration)

	if _, err := tx.ExecContext(ctx,
		`UPDATE licenses SET end_date = $1 WHERE id = $2`, newEndDate, currentID); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET end_date = $1
		 WHERE username = $2 AND subscription_name = $3 AND is_active = TRUE`,
		newEndDate, username, currentName); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM licenses WHERE id = $1`, newID); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return newEndDate, nil
}

// ResetLicenseHwid очищает поле hwid у лицензии; запись пользователя не трогает.
func (s *Storage) ResetLicenseHwid(ctx context.Context, licenseKey string) error {
	const op = "storage.ResetLicenseHwid"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE licenses SET hwid = NULL WHERE license_key = $1`
	res, err := s.DB.ExecContext(ctx, query, licenseKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrLicenseNotFound)
	}
	return nil
}

// ListLicensesBySubscription возвращает все лицензии с указанным названием подписки.
func (s *Storage) ListLicensesBySubscription(ctx context.Context, subscriptionName string) ([]*models.License, error) {
	const op = "storage.ListLicensesBySubscription"
	query := `SELECT ` + licenseColumns + `
			  FROM licenses
			  WHERE subscription_name = $1
			  ORDER BY id`
	return s.listLicenses(ctx, op, query, subscriptionName)
}

// ListLicensesByUsername возвращает все лицензии, привязанные к пользователю.
func (s *Storage) ListLicensesByUsername(ctx context.Context, username string) ([]*models.License, error) {
	const op = "storage.ListLicensesByUsername"
	query := `SELECT ` + licenseColumns + `
			  FROM licenses
			  WHERE username = $1
			  ORDER BY id`
	return s.listLicenses(ctx, op, query, username)
}

// ListLicensesByStatus возвращает все лицензии с указанным признаком активности.
func (s *Storage) ListLicensesByStatus(ctx context.Context, isActive bool) ([]*models.License, error) {
	const op = "storage.ListLicensesByStatus"
	query := `SELECT ` + licenseColumns + `
			  FROM licenses
			  WHERE is_active = $1
			  ORDER BY id`
	return s.listLicenses(ctx, op, query, isActive)
}

func (s *Storage) listLicenses(ctx context.Context, op, query string, args ...any) ([]*models.License, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.License
	for rows.Next() {
		var item models.License
		var username, hwid sql.NullString
		var endDate sql.NullTime
		if err := rows.Scan(&item.ID, &item.LicenseKey, &item.SubscriptionName,
			&item.DurationDays, &item.IsActive, &username, &item.CreatedAt,
			&endDate, &hwid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if username.Valid {
			item.Username = &username.String
		}
		if endDate.Valid {
			item.EndDate = &endDate.Time
		}
		if hwid.Valid {
			item.Hwid = &hwid.String
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReapExpiredLicenses переносит просроченные активные лицензии в архивную
// таблицу used_licenses и удаляет их из живой таблицы одним атомарным
// оператором. Возвращает количество перенесённых лицензий.
func (s *Storage) ReapExpiredLicenses(ctx context.Context, now time.Time) (int, error) {
	const op = "storage.ReapExpiredLicenses"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `WITH expired AS (
			      DELETE FROM licenses
			      WHERE is_active = TRUE AND end_date < $1
			      RETURNING id, license_key, subscription_name, duration_days,
			          is_active, username, created_at, end_date, hwid
			  )
			  INSERT INTO used_licenses (id, license_key, subscription_name, duration_days,
			      is_active, username, created_at, end_date, hwid)
			  SELECT id, license_key, subscription_name, duration_days,
			      is_active, username, created_at, end_date, hwid
			  FROM expired`
	res, err := s.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeleteUsedLicense удаляет лицензию из архива использованных по её ключу.
func (s *Storage) DeleteUsedLicense(ctx context.Context, licenseKey string) error {
	const op = "storage.DeleteUsedLicense"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM used_licenses WHERE license_key = $1`
	res, err := s.DB.ExecContext(ctx, query, licenseKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrLicenseNotFound)
	}
	return nil
}
