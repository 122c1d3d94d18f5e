// Package generate реализует HTTP-обработчик выпуска партии лицензионных ключей.
//
// Handler принимает название подписки, длительность и количество ключей,
// валидирует запрос и делегирует генерацию сервису лицензий. При ошибке
// на середине партии возвращаются уже созданные ключи.
package generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/magabrotheeeer/license-control/internal/http/response"
	"github.com/magabrotheeeer/license-control/internal/lib/sl"
	"github.com/magabrotheeeer/license-control/internal/models"
)

// Handler обрабатывает HTTP-запросы выпуска лицензий.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики генерации лицензий.
type Service interface {
	GenerateBatch(ctx context.Context, subscriptionName string, durationDays, quantity int) ([]string, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.license.generate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	keys, err := h.service.GenerateBatch(r.Context(), req.SubscriptionName, req.DurationDays, req.Quantity)
	if err != nil {
		log.Error("failed to generate license keys", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  "could not generate all license keys",
			Data: map[string]any{
				"license_keys": keys,
				"created":      len(keys),
				"requested":    req.Quantity,
			},
		})
		return
	}

	log.Info("generated license keys",
		slog.String("subscription_name", req.SubscriptionName),
		slog.Int("count", len(keys)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"license_keys": keys,
		"created":      len(keys),
	}))
}
