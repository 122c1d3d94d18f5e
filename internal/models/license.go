package models

import "time"

// License представляет лицензионный ключ и его состояние жизненного цикла.
// Ключ создаётся неактивным, при активации привязывается к пользователю и
// получает дату окончания. Просроченные активные лицензии переносятся
// фоновым процессом в архивную таблицу использованных лицензий.
type License struct {
	ID               int        // Идентификатор записи
	LicenseKey       string     // Ключ формата XXXX-XXXX-XXXX
	SubscriptionName string     // Название подписки, которую открывает ключ
	DurationDays     int        // Длительность в днях
	IsActive         bool       // Признак активации
	Username         *string    // Имя пользователя, nil до активации
	CreatedAt        time.Time  // Дата выпуска ключа
	EndDate          *time.Time // Дата окончания, nil до активации
	Hwid             *string    // HWID устройства (информационное поле)
}

// DummyGenerateRequest используется для приёма запроса на выпуск партии лицензий.
type DummyGenerateRequest struct {
	SubscriptionName string `json:"subscription_name" validate:"required"`      // Название подписки
	DurationDays     int    `json:"duration_days" validate:"required,gt=0"`     // Длительность в днях
	Quantity         int    `json:"quantity" validate:"required,gt=0,lte=1000"` // Количество ключей
}

// DummyExtendRequest используется для приёма запроса на продление подписки
// за счёт второго неиспользованного ключа.
type DummyExtendRequest struct {
	NewLicenseKey string `json:"new_license_key" validate:"required"` // Ключ, который будет израсходован
}

// DummyLicenseKeyRequest используется для запросов, которым нужен только ключ.
type DummyLicenseKeyRequest struct {
	LicenseKey string `json:"license_key" validate:"required"` // Лицензионный ключ
}
