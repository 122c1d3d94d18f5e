package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

// Мок сервиса с методом GenerateBatch
type LicenseServiceMock struct {
	mock.Mock
}

func (m *LicenseServiceMock) GenerateBatch(ctx context.Context, subscriptionName string, durationDays, quantity int) ([]string, error) {
	args := m.Called(ctx, subscriptionName, durationDays, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestGenerateHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		mockKeys       []string
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name: "successful generation",
			requestBody: models.DummyGenerateRequest{
				SubscriptionName: "pro",
				DurationDays:     30,
				Quantity:         3,
			},
			mockKeys:       []string{"AAAA-BBBB-CCCC", "DDDD-EEEE-FFFF", "GGGG-HHHH-IIII"},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "partial failure returns created keys",
			requestBody: models.DummyGenerateRequest{
				SubscriptionName: "pro",
				DurationDays:     30,
				Quantity:         3,
			},
			mockKeys:       []string{"AAAA-BBBB-CCCC"},
			mockErr:        errors.New("db error"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not generate all license keys",
		},
		{
			name: "zero quantity rejected",
			requestBody: models.DummyGenerateRequest{
				SubscriptionName: "pro",
				DurationDays:     30,
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "too large batch rejected",
			requestBody: models.DummyGenerateRequest{
				SubscriptionName: "pro",
				DurationDays:     30,
				Quantity:         1001,
			},
			wantStatusCode: http.StatusUnprocessableEntity,
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
			serviceMock := new(LicenseServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if tt.mockKeys != nil {
				serviceMock.On("GenerateBatch", mock.Anything, "pro", 30, 3).
					Return(tt.mockKeys, tt.mockErr).Once()
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

			req := httptest.NewRequest(http.MethodPost, "/licenses/generate", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.Contains(t, resp["error"], tt.wantError)
			}
			if tt.wantStatusCode == http.StatusOK {
				data := resp["data"].(map[string]any)
				assert.Len(t, data["license_keys"], len(tt.mockKeys))
			}
			serviceMock.AssertExpectations(t)
		})
	}
}
