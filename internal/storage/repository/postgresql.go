// Package repository реализует хранилище данных на основе PostgreSQL
// для лицензионного сервиса. Предоставляет методы работы с пользователями,
// лицензиями, подписками и чёрным списком HWID. Составные операции
// жизненного цикла (активация, продление, перенос просроченных лицензий,
// блокировка пользователя) выполняются в одной транзакции, чтобы частично
// применённое состояние не было наблюдаемо.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'licenses'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table licenses missing or query error: %w", err)
	}
	return nil
}
