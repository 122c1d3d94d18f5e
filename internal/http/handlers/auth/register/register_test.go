package register

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
)

// Мок сервиса с методом Register
type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, email, username, password, hwid string) (string, error) {
	args := m.Called(ctx, email, username, password, hwid)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		mockHwid       string
		mockUID        string
		mockErr        error
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name: "valid registration",
			requestBody: models.DummyRegisterRequest{
				Username: "user1",
				Password: "password123",
				Email:    "user1@example.com",
			},
			mockUID:        "some-uuid-string",
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name: "registration with hwid passes it through",
			requestBody: models.DummyRegisterRequest{
				Username: "user1",
				Password: "password123",
				Email:    "user1@example.com",
				Hwid:     "HW-REG-1",
			},
			mockHwid:       "HW-REG-1",
			mockUID:        "some-uuid-string",
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name: "validation error - missing password",
			requestBody: models.DummyRegisterRequest{
				Username: "user1",
				Email:    "user1@example.com",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Password is a required field",
			wantStatus:     "Error",
		},
		{
			name: "validation error - uppercase username",
			requestBody: models.DummyRegisterRequest{
				Username: "User1",
				Password: "password123",
				Email:    "user1@example.com",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
		{
			name: "email already taken",
			requestBody: models.DummyRegisterRequest{
				Username: "user1",
				Password: "password123",
				Email:    "user1@example.com",
			},
			mockErr:        models.ErrEmailTaken,
			wantStatusCode: http.StatusConflict,
			wantError:      "email already taken",
			wantStatus:     "Error",
		},
		{
			name: "username already taken",
			requestBody: models.DummyRegisterRequest{
				Username: "user1",
				Password: "password123",
				Email:    "user1@example.com",
			},
			mockErr:        models.ErrUsernameTaken,
			wantStatusCode: http.StatusConflict,
			wantError:      "username already taken",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			handler := New(newNoopLogger(), authMock)

			if tt.mockUID != "" || tt.mockErr != nil {
				authMock.On("Register", mock.Anything,
					"user1@example.com", "user1", "password123", tt.mockHwid,
				).Return(tt.mockUID, tt.mockErr).Once()
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

			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp["status"])
			if tt.wantError != "" {
				assert.Contains(t, resp["error"], tt.wantError)
			}
			authMock.AssertExpectations(t)
		})
	}
}
