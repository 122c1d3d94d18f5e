package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customjwt "github.com/magabrotheeeer/license-control/internal/lib/jwt"
	"github.com/magabrotheeeer/license-control/internal/lib/password"
	"github.com/magabrotheeeer/license-control/internal/models"
	services "github.com/magabrotheeeer/license-control/internal/services/auth"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) BindUserHwid(ctx context.Context, username, hwid string) error {
	args := m.Called(ctx, username, hwid)
	return args.Error(0)
}

func (m *UserRepoMock) ResetUserHwid(ctx context.Context, username string, hwid *string) error {
	args := m.Called(ctx, username, hwid)
	return args.Error(0)
}

func (m *UserRepoMock) TouchActivity(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *UserRepoMock) CountActiveUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *UserRepoMock) UpdateUACLevel(ctx context.Context, username string, uacLevel int) error {
	args := m.Called(ctx, username, uacLevel)
	return args.Error(0)
}

func (m *UserRepoMock) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	args := m.Called(ctx, username, passwordHash)
	return args.Error(0)
}

func (m *UserRepoMock) BanUser(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *UserRepoMock) IsHwidBlacklisted(ctx context.Context, hwid string) (bool, error) {
	args := m.Called(ctx, hwid)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepoMock) ListActiveSubscriptions(ctx context.Context, username string) ([]*models.Subscription, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(username string, uacLevel int) (string, error) {
	args := m.Called(username, uacLevel)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

// Мок для Cache, по умолчанию всегда промахивается
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newCacheMiss() *CacheMock {
	cache := new(CacheMock)
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil).Maybe()
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	cache.On("Invalidate", mock.Anything).Return(nil).Maybe()
	return cache
}

func hashOf(t *testing.T, raw string) string {
	t.Helper()
	hash, err := password.GetHash(raw)
	require.NoError(t, err)
	return hash
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		username    string
		password    string
		hwid        string
		setupMocks  func(r *UserRepoMock)
		wantUserUID string
		wantErr     bool
		errMsg      string
	}{
		{
			name:     "successful registration",
			email:    "test@example.com",
			username: "testuser",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Email == "test@example.com" &&
						user.Username == "testuser" &&
						user.PasswordHash != "" &&
						user.UACLevel == 0 &&
						user.Hwid == nil
				})).Return("some-uuid-string", nil).Once()
			},
			wantUserUID: "some-uuid-string",
			wantErr:     false,
		},
		{
			name:     "регистрация с hwid сохраняет устройство",
			email:    "test@example.com",
			username: "testuser",
			password: "password123",
			hwid:     "HW-REG-1",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Hwid != nil && *user.Hwid == "HW-REG-1"
				})).Return("some-uuid-string", nil).Once()
			},
			wantUserUID: "some-uuid-string",
			wantErr:     false,
		},
		{
			name:     "repository error",
			email:    "test@example.com",
			username: "testuser",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).Return("", errors.New("db error")).Once()
			},
			wantUserUID: "",
			wantErr:     true,
			errMsg:      "db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, newCacheMiss(), jwtMock, NewNoopLogger())

			tt.setupMocks(repo)

			uid, err := svc.Register(context.Background(), tt.email, tt.username, tt.password, tt.hwid)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantUserUID, uid)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash := hashOf(t, "password123")

	tests := []struct {
		name       string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantToken  string
		wantErr    error
	}{
		{
			name:     "successful login",
			password: "password123",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").
					Return(&models.User{Username: "testuser", PasswordHash: hash, UACLevel: 1}, nil).Once()
				j.On("GenerateToken", "testuser", 1).Return("jwt-token", nil).Once()
			},
			wantToken: "jwt-token",
		},
		{
			name:     "wrong password",
			password: "wrongpass",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").
					Return(&models.User{Username: "testuser", PasswordHash: hash}, nil).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			password: "password123",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").
					Return(nil, models.ErrUserNotFound).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
		{
			name:     "banned user",
			password: "password123",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").
					Return(&models.User{Username: "testuser", PasswordHash: hash, IsBanned: true}, nil).Once()
			},
			wantErr: models.ErrUserBanned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, newCacheMiss(), jwtMock, NewNoopLogger())

			tt.setupMocks(repo, jwtMock)

			result, err := svc.Login(context.Background(), "testuser", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, result.Token)
			}
			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_LoginClient(t *testing.T) {
	hash := hashOf(t, "password123")
	user := func() *models.User {
		return &models.User{Username: "testuser", PasswordHash: hash, UACLevel: 0}
	}

	tests := []struct {
		name       string
		hwid       string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantErr    error
	}{
		{
			name: "first login binds device",
			hwid: "HW-1",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(user(), nil).Once()
				r.On("IsHwidBlacklisted", mock.Anything, "HW-1").Return(false, nil).Once()
				r.On("BindUserHwid", mock.Anything, "testuser", "HW-1").Return(nil).Once()
				r.On("TouchActivity", mock.Anything, "testuser").Return(nil).Once()
				r.On("ListActiveSubscriptions", mock.Anything, "testuser").
					Return([]*models.Subscription{}, nil).Once()
				j.On("GenerateToken", "testuser", 0).Return("jwt-token", nil).Once()
			},
		},
		{
			name:       "missing hwid",
			hwid:       "",
			setupMocks: func(_ *UserRepoMock, _ *JwtMakerMock) {},
			wantErr:    models.ErrHwidRequired,
		},
		{
			name: "blacklisted hwid",
			hwid: "HW-BAD",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(user(), nil).Once()
				r.On("IsHwidBlacklisted", mock.Anything, "HW-BAD").Return(true, nil).Once()
			},
			wantErr: models.ErrHwidBlacklisted,
		},
		{
			name: "another device rejected",
			hwid: "HW-2",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(user(), nil).Once()
				r.On("IsHwidBlacklisted", mock.Anything, "HW-2").Return(false, nil).Once()
				r.On("BindUserHwid", mock.Anything, "testuser", "HW-2").
					Return(models.ErrHwidMismatch).Once()
			},
			wantErr: models.ErrHwidMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, newCacheMiss(), jwtMock, NewNoopLogger())

			tt.setupMocks(repo, jwtMock)

			result, err := svc.LoginClient(context.Background(), "testuser", "password123", tt.hwid)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "jwt-token", result.Token)
				assert.NotNil(t, result.Subscriptions)
			}
			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_ValidateUAC(t *testing.T) {
	repo := new(UserRepoMock)
	svc := services.NewAuthService(repo, newCacheMiss(), new(JwtMakerMock), NewNoopLogger())

	repo.On("GetUserByUsername", mock.Anything, "admin").
		Return(&models.User{Username: "admin", UACLevel: 3}, nil).Twice()

	ok, err := svc.ValidateUAC(context.Background(), "admin", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ValidateUAC(context.Background(), "admin", 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthService_ResetPassword(t *testing.T) {
	repo := new(UserRepoMock)
	svc := services.NewAuthService(repo, newCacheMiss(), new(JwtMakerMock), NewNoopLogger())

	repo.On("UpdatePasswordHash", mock.Anything, "testuser", mock.MatchedBy(func(hash string) bool {
		return password.CompareHash(hash, "newpass123") == nil
	})).Return(nil).Once()

	require.NoError(t, svc.ResetPassword(context.Background(), "testuser", "newpass123"))
	repo.AssertExpectations(t)
}

func TestAuthService_ActiveUsers(t *testing.T) {
	repo := new(UserRepoMock)
	svc := services.NewAuthService(repo, newCacheMiss(), new(JwtMakerMock), NewNoopLogger())

	repo.On("CountActiveUsers", mock.Anything).Return(42, nil).Once()

	count, err := svc.ActiveUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}
