package models

import "time"

// Subscription представляет именованный, ограниченный по времени доступ,
// принадлежащий пользователю. На пару (пользователь, название подписки)
// одновременно может существовать не более одной активной записи:
// активация второго ключа того же названия продлевает существующую запись.
type Subscription struct {
	ID               int       // Идентификатор записи
	Username         string    // Имя владельца
	SubscriptionName string    // Название подписки
	StartDate        time.Time // Дата начала
	EndDate          time.Time // Дата окончания
	IsActive         bool      // Признак активности
}
