package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// execer покрывает *sql.DB и *sql.Tx, чтобы запись в чёрный список
// выполнялась и отдельным запросом, и внутри транзакции блокировки.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func blacklistHwid(ctx context.Context, db execer, hwid string) error {
	query := `INSERT INTO hwid_blacklist (hwid) VALUES ($1) ON CONFLICT (hwid) DO NOTHING`
	_, err := db.ExecContext(ctx, query, hwid)
	return err
}

// IsHwidBlacklisted сообщает, находится ли HWID в чёрном списке.
func (s *Storage) IsHwidBlacklisted(ctx context.Context, hwid string) (bool, error) {
	const op = "storage.IsHwidBlacklisted"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM hwid_blacklist WHERE hwid = $1)`
	if err := s.DB.QueryRowContext(ctx, query, hwid).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// AddHwidToBlacklist добавляет HWID в чёрный список вне блокировки
// пользователя. Повторное добавление того же значения не считается ошибкой.
func (s *Storage) AddHwidToBlacklist(ctx context.Context, hwid string) error {
	const op = "storage.AddHwidToBlacklist"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if err := blacklistHwid(ctx, s.DB, hwid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
