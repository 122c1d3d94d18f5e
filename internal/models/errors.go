package models

import "errors"

// Сентинельные ошибки доменного слоя. Репозиторий и сервисы возвращают их
// обёрнутыми через fmt.Errorf("%s: %w", op, err), обработчики сопоставляют
// через errors.Is и выбирают HTTP-статус.
var (
	// ErrUserNotFound возвращается, когда пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrLicenseNotFound возвращается, когда лицензия не найдена или уже активирована.
	ErrLicenseNotFound = errors.New("license not found or already activated")
	// ErrEmailTaken возвращается при попытке регистрации с занятой почтой.
	ErrEmailTaken = errors.New("email is already in use")
	// ErrUsernameTaken возвращается при попытке регистрации с занятым именем.
	ErrUsernameTaken = errors.New("username is already in use")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserBanned возвращается при входе заблокированного пользователя.
	ErrUserBanned = errors.New("user is banned")
	// ErrHwidRequired возвращается, когда клиентский вход не передал HWID.
	ErrHwidRequired = errors.New("hwid is required for client login")
	// ErrHwidMismatch возвращается, когда предъявленный HWID не совпадает с привязанным.
	ErrHwidMismatch = errors.New("hwid does not match")
	// ErrHwidBlacklisted возвращается, когда HWID находится в чёрном списке.
	ErrHwidBlacklisted = errors.New("hwid is blacklisted")
	// ErrSubscriptionMismatch возвращается, когда названия подписок ключей не совпадают.
	ErrSubscriptionMismatch = errors.New("license key does not match the current subscription")
)
