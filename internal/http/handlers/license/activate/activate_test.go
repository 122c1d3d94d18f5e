package activate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/license-control/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-control/internal/models"
)

// Мок сервиса с методом Activate
type LicenseServiceMock struct {
	mock.Mock
}

func (m *LicenseServiceMock) Activate(ctx context.Context, username, licenseKey string) (time.Time, error) {
	args := m.Called(ctx, username, licenseKey)
	return args.Get(0).(time.Time), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestActivateHandler_ServeHTTP(t *testing.T) {
	endDate := time.Now().AddDate(0, 0, 30).UTC()

	tests := []struct {
		name           string
		requestBody    any
		ctxUsername    string
		mockEndDate    time.Time
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "successful activation",
			requestBody:    models.DummyLicenseKeyRequest{LicenseKey: "AAAA-BBBB-CCCC"},
			ctxUsername:    "user1",
			mockEndDate:    endDate,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "license not found",
			requestBody:    models.DummyLicenseKeyRequest{LicenseKey: "AAAA-BBBB-CCCC"},
			ctxUsername:    "user1",
			mockErr:        models.ErrLicenseNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "license not found or already activated",
		},
		{
			name:           "missing username in context",
			requestBody:    models.DummyLicenseKeyRequest{LicenseKey: "AAAA-BBBB-CCCC"},
			ctxUsername:    "",
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "unauthorized",
		},
		{
			name:           "missing license key",
			requestBody:    models.DummyLicenseKeyRequest{},
			ctxUsername:    "user1",
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field LicenseKey is a required field",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			ctxUsername:    "user1",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(LicenseServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if !tt.mockEndDate.IsZero() || tt.mockErr != nil {
				serviceMock.On("Activate", mock.Anything, tt.ctxUsername, "AAAA-BBBB-CCCC").
					Return(tt.mockEndDate, tt.mockErr).Once()
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

			req := httptest.NewRequest(http.MethodPost, "/licenses/activate", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.ctxUsername != "" {
				ctx = context.WithValue(ctx, middlewarectx.User, tt.ctxUsername)
			}
			req = req.WithContext(ctx)

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
			serviceMock.AssertExpectations(t)
		})
	}
}
