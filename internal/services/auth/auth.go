// Package services содержит логику бизнес-уровня для работы с пользователями,
// аутентификацией и уровнями доступа.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/license-control/internal/lib/jwt"
	"github.com/magabrotheeeer/license-control/internal/lib/password"
	"github.com/magabrotheeeer/license-control/internal/lib/sl"
	"github.com/magabrotheeeer/license-control/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	BindUserHwid(ctx context.Context, username, hwid string) error
	ResetUserHwid(ctx context.Context, username string, hwid *string) error
	TouchActivity(ctx context.Context, username string) error
	CountActiveUsers(ctx context.Context) (int, error)
	UpdateUACLevel(ctx context.Context, username string, uacLevel int) error
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
	BanUser(ctx context.Context, username string) error
	IsHwidBlacklisted(ctx context.Context, hwid string) (bool, error)
	ListActiveSubscriptions(ctx context.Context, username string) ([]*models.Subscription, error)
}

// Cache описывает контракт кэша для читающих операций.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// LoginResult результат успешного входа.
type LoginResult struct {
	Token         string                 `json:"token"`
	UACLevel      int                    `json:"uac_level"`
	Subscriptions []*models.Subscription `json:"subscriptions"`
}

// Profile публичное представление учетной записи вместе с активными
// подписками. Хэш пароля наружу не отдается.
type Profile struct {
	Username      string                 `json:"username"`
	Email         string                 `json:"email"`
	UACLevel      int                    `json:"uac_level"`
	IsActive      bool                   `json:"is_active"`
	IsBanned      bool                   `json:"is_banned"`
	Hwid          *string                `json:"hwid,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	Subscriptions []*models.Subscription `json:"subscriptions"`
}

// AuthService отвечает за регистрацию, авторизацию и управление учетными записями.
type AuthService struct {
	users    UserRepository
	cache    Cache
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, cache Cache, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		cache:    cache,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создает нового пользователя с хэшированием пароля и нулевым уровнем доступа.
// Необязательный hwid сохраняется сразу, тогда клиентский вход не выполняет привязку.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword, hwid string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		UACLevel:     0,
	}
	if hwid != "" {
		user.Hwid = &hwid
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль и выдает JWT без проверок устройства.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (*LoginResult, error) {
	user, err := s.authenticate(ctx, username, rawPassword)
	if err != nil {
		return nil, err
	}
	token, err := s.jwtMaker.GenerateToken(user.Username, user.UACLevel)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, UACLevel: user.UACLevel}, nil
}

// LoginWeb вход из личного кабинета: без привязки устройства,
// в ответ включается список активных подписок.
func (s *AuthService) LoginWeb(ctx context.Context, username, rawPassword string) (*LoginResult, error) {
	user, err := s.authenticate(ctx, username, rawPassword)
	if err != nil {
		return nil, err
	}
	token, err := s.jwtMaker.GenerateToken(user.Username, user.UACLevel)
	if err != nil {
		return nil, err
	}
	subs, err := s.activeSubscriptions(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, UACLevel: user.UACLevel, Subscriptions: subs}, nil
}

// LoginClient вход из клиентского приложения: требует идентификатор устройства,
// проверяет черный список и закрепляет устройство за пользователем при первом входе.
func (s *AuthService) LoginClient(ctx context.Context, username, rawPassword, hwid string) (*LoginResult, error) {
	if hwid == "" {
		return nil, models.ErrHwidRequired
	}

	user, err := s.authenticate(ctx, username, rawPassword)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.users.IsHwidBlacklisted(ctx, hwid)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, models.ErrHwidBlacklisted
	}

	if err := s.users.BindUserHwid(ctx, username, hwid); err != nil {
		return nil, err
	}

	if err := s.users.TouchActivity(ctx, username); err != nil {
		s.log.Warn("failed to touch user activity", slog.String("username", username), sl.Err(err))
	}

	token, err := s.jwtMaker.GenerateToken(user.Username, user.UACLevel)
	if err != nil {
		return nil, err
	}
	subs, err := s.activeSubscriptions(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, UACLevel: user.UACLevel, Subscriptions: subs}, nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Username: claims.Username,
		UACLevel: claims.UACLevel,
	}
	return user, true, nil
}

// GetProfile возвращает профиль пользователя и его активные подписки.
func (s *AuthService) GetProfile(ctx context.Context, username string) (*Profile, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	subs, err := s.activeSubscriptions(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Username:      user.Username,
		Email:         user.Email,
		UACLevel:      user.UACLevel,
		IsActive:      user.IsActive,
		IsBanned:      user.IsBanned,
		Hwid:          user.Hwid,
		CreatedAt:     user.CreatedAt,
		Subscriptions: subs,
	}, nil
}

// ChangeUAC меняет уровень доступа пользователя.
func (s *AuthService) ChangeUAC(ctx context.Context, username string, uacLevel int) error {
	return s.users.UpdateUACLevel(ctx, username, uacLevel)
}

// FetchUAC возвращает текущий уровень доступа пользователя.
func (s *AuthService) FetchUAC(ctx context.Context, username string) (int, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return user.UACLevel, nil
}

// ValidateUAC проверяет, что уровень доступа пользователя не ниже требуемого.
func (s *AuthService) ValidateUAC(ctx context.Context, username string, requiredLevel int) (bool, error) {
	level, err := s.FetchUAC(ctx, username)
	if err != nil {
		return false, err
	}
	return level >= requiredLevel, nil
}

// Heartbeat отмечает пользователя активным.
func (s *AuthService) Heartbeat(ctx context.Context, username string) error {
	return s.users.TouchActivity(ctx, username)
}

// ActiveUsers возвращает число активных пользователей, коротко кэшируя ответ.
func (s *AuthService) ActiveUsers(ctx context.Context) (int, error) {
	const cacheKey = "users:active_count"
	var count int
	found, err := s.cache.Get(cacheKey, &count)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return count, nil
	}

	count, err = s.users.CountActiveUsers(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(cacheKey, count, 30*time.Second); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return count, nil
}

// ResetPassword устанавливает пользователю новый пароль.
func (s *AuthService) ResetPassword(ctx context.Context, username, newPassword string) error {
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, username, hashed)
}

// ResetHwid снимает привязку устройства с пользователя.
func (s *AuthService) ResetHwid(ctx context.Context, username string) error {
	return s.users.ResetUserHwid(ctx, username, nil)
}

// Ban блокирует пользователя и вносит его устройство в черный список.
func (s *AuthService) Ban(ctx context.Context, username string) error {
	if err := s.users.BanUser(ctx, username); err != nil {
		return err
	}
	s.log.Info("banned user", slog.String("username", username))
	return nil
}

func (s *AuthService) authenticate(ctx context.Context, username, rawPassword string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	if user.IsBanned {
		return nil, models.ErrUserBanned
	}
	return user, nil
}

func (s *AuthService) activeSubscriptions(ctx context.Context, username string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	cacheKey := fmt.Sprintf("subscriptions:active:%s", username)
	found, err := s.cache.Get(cacheKey, &subs)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return subs, nil
	}

	subs, err = s.users.ListActiveSubscriptions(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, subs, 5*time.Minute); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return subs, nil
}
