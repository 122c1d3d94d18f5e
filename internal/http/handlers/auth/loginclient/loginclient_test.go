package loginclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/license-control/internal/models"
	services "github.com/magabrotheeeer/license-control/internal/services/auth"
)

// Мок сервиса с методом LoginClient
type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) LoginClient(ctx context.Context, username, password, hwid string) (*services.LoginResult, error) {
	args := m.Called(ctx, username, password, hwid)
	result, _ := args.Get(0).(*services.LoginResult)
	return result, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginClientHandler_ServeHTTP(t *testing.T) {
	okResult := &services.LoginResult{
		Token:         "jwt-token",
		UACLevel:      0,
		Subscriptions: []*models.Subscription{},
	}

	tests := []struct {
		name           string
		requestBody    any
		mockResult     *services.LoginResult
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name: "successful client login",
			requestBody: models.DummyLoginRequest{
				Username: "user1",
				Password: "password123",
				Hwid:     "HW-1",
			},
			mockResult:     okResult,
			wantStatusCode: http.StatusOK,
		},
		{
			name: "missing hwid",
			requestBody: models.DummyLoginRequest{
				Username: "user1",
				Password: "password123",
			},
			mockErr:        models.ErrHwidRequired,
			wantStatusCode: http.StatusForbidden,
			wantError:      "hwid is required",
		},
		{
			name: "blacklisted hwid",
			requestBody: models.DummyLoginRequest{
				Username: "user1",
				Password: "password123",
				Hwid:     "HW-BAD",
			},
			mockErr:        models.ErrHwidBlacklisted,
			wantStatusCode: http.StatusForbidden,
			wantError:      "hwid is blacklisted",
		},
		{
			name: "bound to another device",
			requestBody: models.DummyLoginRequest{
				Username: "user1",
				Password: "password123",
				Hwid:     "HW-2",
			},
			mockErr:        models.ErrHwidMismatch,
			wantStatusCode: http.StatusForbidden,
			wantError:      "account is bound to another device",
		},
		{
			name: "banned user",
			requestBody: models.DummyLoginRequest{
				Username: "user1",
				Password: "password123",
				Hwid:     "HW-1",
			},
			mockErr:        models.ErrUserBanned,
			wantStatusCode: http.StatusForbidden,
			wantError:      "user is banned",
		},
		{
			name: "invalid credentials",
			requestBody: models.DummyLoginRequest{
				Username: "user1",
				Password: "wrongpass",
				Hwid:     "HW-1",
			},
			mockErr:        models.ErrInvalidCredentials,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid credentials",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			handler := New(newNoopLogger(), authMock)

			if tt.mockResult != nil || tt.mockErr != nil {
				authMock.On("LoginClient", mock.Anything,
					mock.Anything, mock.Anything, mock.Anything,
				).Return(tt.mockResult, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/login-client", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.Contains(t, resp["error"], tt.wantError)
			} else {
				assert.Equal(t, "OK", resp["status"])
			}
			authMock.AssertExpectations(t)
		})
	}
}
