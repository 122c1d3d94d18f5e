package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/license-control/internal/models"
)

// ListActiveSubscriptions возвращает активные подписки пользователя.
// Список вычисляется по таблице подписок при каждом чтении; отдельного
// денормализованного поля на пользователе нет.
func (s *Storage) ListActiveSubscriptions(ctx context.Context, username string) ([]*models.Subscription, error) {
	const op = "storage.ListActiveSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, subscription_name, start_date, end_date, is_active
			  FROM subscriptions
			  WHERE username = $1 AND is_active = TRUE
			  ORDER BY subscription_name`
	rows, err := s.DB.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		if err := rows.Scan(&item.ID, &item.Username, &item.SubscriptionName,
			&item.StartDate, &item.EndDate, &item.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
