// Package models содержит доменные структуры лицензионного сервиса:
// пользователей, лицензии, подписки и записи чёрного списка HWID,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string     // Уникальный идентификатор пользователя
	Username     string     // Имя пользователя (уникальное, в нижнем регистре)
	Email        string     // Электронная почта (уникальная)
	PasswordHash string     // Хэш пароля пользователя
	Hwid         *string    // Привязанный идентификатор устройства, nil до первого входа с клиента
	IsBanned     bool       // Признак блокировки пользователя
	IsActive     bool       // Признак активности (обновляется трекером активности)
	LastActivity *time.Time // Время последней активности, nil до первого входа
	UACLevel     int        // Уровень доступа, 0 для обычных пользователей
	CreatedAt    time.Time  // Дата регистрации
}

// DummyRegisterRequest используется для приёма данных регистрации из JSON-запроса.
type DummyRegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum,lowercase"` // Имя пользователя
	Email    string `json:"email" validate:"required,email"`                              // Электронная почта
	Password string `json:"password" validate:"required,min=6"`                           // Пароль
	Hwid     string `json:"hwid,omitempty" validate:"omitempty"`                          // HWID (опционально)
}

// DummyLoginRequest используется для приёма данных входа из JSON-запроса.
// Поле Hwid обязательно только для клиентского входа, это проверяет бизнес-логика.
type DummyLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"` // Имя пользователя
	Password string `json:"password" validate:"required"`              // Пароль
	Hwid     string `json:"hwid,omitempty" validate:"omitempty"`       // HWID устройства
}

// DummyChangeUACRequest используется для приёма запроса на смену уровня доступа.
type DummyChangeUACRequest struct {
	Username string `json:"username" validate:"required"`        // Имя пользователя
	UACLevel *int   `json:"uac_level" validate:"required,gte=0"` // Новый уровень доступа
}

// DummyValidateUACRequest используется для приёма запроса на проверку уровня доступа.
type DummyValidateUACRequest struct {
	Username         string `json:"username" validate:"required"`                 // Имя пользователя
	RequiredUACLevel *int   `json:"required_uac_level" validate:"required,gte=0"` // Требуемый уровень
}

// DummyUsernameRequest используется для административных запросов,
// которым нужно только имя пользователя.
type DummyUsernameRequest struct {
	Username string `json:"username" validate:"required"` // Имя пользователя
}

// DummyResetPasswordRequest используется для приёма запроса на смену пароля пользователя.
type DummyResetPasswordRequest struct {
	Username    string `json:"username" validate:"required"`           // Имя пользователя
	NewPassword string `json:"new_password" validate:"required,min=6"` // Новый пароль
}
