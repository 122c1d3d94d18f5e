package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/license-control/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его ID.
// Уникальность почты и имени обеспечивается ограничениями схемы: нарушение
// преобразуется в ErrEmailTaken или ErrUsernameTaken.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO users (username, email, password_hash, hwid)
			  VALUES ($1, $2, $3, $4)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Hwid).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return "", fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
			case "users_username_key":
				return "", fmt.Errorf("%s: %w", op, models.ErrUsernameTaken)
			}
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, email, password_hash, hwid, is_banned, is_active,
			      last_activity, uac_level, created_at
			  FROM users
			  WHERE username = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, username), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var hwid sql.NullString
	var lastActivity sql.NullTime
	if err := row.Scan(&u.UID, &u.Username, &u.Email, &u.PasswordHash, &hwid,
		&u.IsBanned, &u.IsActive, &lastActivity, &u.UACLevel, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if hwid.Valid {
		u.Hwid = &hwid.String
	}
	if lastActivity.Valid {
		u.LastActivity = &lastActivity.Time
	}
	return u, nil
}

// BindUserHwid привязывает HWID к пользователю, только если он ещё не привязан.
// Возвращает ErrHwidMismatch, если за время между чтением и записью HWID успел
// привязаться к другому значению.
func (s *Storage) BindUserHwid(ctx context.Context, username, hwid string) error {
	const op = "storage.BindUserHwid"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET hwid = $1 WHERE username = $2 AND (hwid IS NULL OR hwid = $1)`
	res, err := s.DB.ExecContext(ctx, query, hwid, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrHwidMismatch)
	}
	return nil
}

// ResetUserHwid устанавливает пользователю новый HWID; nil возвращает
// пользователя в состояние без привязки.
func (s *Storage) ResetUserHwid(ctx context.Context, username string, hwid *string) error {
	const op = "storage.ResetUserHwid"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET hwid = $1 WHERE username = $2`
	res, err := s.DB.ExecContext(ctx, query, hwid, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}

// TouchActivity отмечает активность пользователя: обновляет last_activity
// и включает признак is_active.
func (s *Storage) TouchActivity(ctx context.Context, username string) error {
	const op = "storage.TouchActivity"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET is_active = TRUE, last_activity = NOW() WHERE username = $1`
	res, err := s.DB.ExecContext(ctx, query, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}

// MarkInactiveUsers сбрасывает is_active пользователям, чья последняя
// активность старше cutoff. Возвращает количество затронутых строк.
func (s *Storage) MarkInactiveUsers(ctx context.Context, cutoff time.Time) (int, error) {
	const op = "storage.MarkInactiveUsers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_active = FALSE
			  WHERE is_active = TRUE
			    AND last_activity IS NOT NULL
			    AND last_activity < $1`
	res, err := s.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CountActiveUsers возвращает число пользователей с is_active = TRUE.
func (s *Storage) CountActiveUsers(ctx context.Context) (int, error) {
	const op = "storage.CountActiveUsers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM users WHERE is_active = TRUE`
	if err := s.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// UpdateUACLevel обновляет уровень доступа пользователя.
func (s *Storage) UpdateUACLevel(ctx context.Context, username string, uacLevel int) error {
	const op = "storage.UpdateUACLevel"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET uac_level = $1 WHERE username = $2`
	res, err := s.DB.ExecContext(ctx, query, uacLevel, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}

// UpdatePasswordHash обновляет хэш пароля пользователя.
func (s *Storage) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	const op = "storage.UpdatePasswordHash"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET password_hash = $1 WHERE username = $2`
	res, err := s.DB.ExecContext(ctx, query, passwordHash, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}

// BanUser блокирует пользователя и, если у него привязан HWID, одной
// транзакцией добавляет этот HWID в чёрный список.
func (s *Storage) BanUser(ctx context.Context, username string) error {
	const op = "storage.BanUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var hwid sql.NullString
	query := `SELECT hwid FROM users WHERE username = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, query, username).Scan(&hwid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET is_banned = TRUE WHERE username = $1`, username); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if hwid.Valid {
		if err := blacklistHwid(ctx, tx, hwid.String); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
