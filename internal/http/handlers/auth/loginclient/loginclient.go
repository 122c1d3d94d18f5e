// Package loginclient реализует HTTP-обработчик входа из клиентского приложения.
//
// Клиентский вход требует идентификатор устройства: при первом входе устройство
// закрепляется за пользователем, вход с другого устройства или с устройства
// из черного списка отклоняется.
package loginclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/magabrotheeeer/license-control/internal/http/response"
	"github.com/magabrotheeeer/license-control/internal/lib/sl"
	"github.com/magabrotheeeer/license-control/internal/models"
	services "github.com/magabrotheeeer/license-control/internal/services/auth"
)

// Handler обрабатывает HTTP-запросы клиентского входа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики клиентского входа.
type Service interface {
	LoginClient(ctx context.Context, username, password, hwid string) (*services.LoginResult, error)
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
	const op = "handlers.auth.loginclient"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	result, err := h.service.LoginClient(r.Context(), req.Username, req.Password, req.Hwid)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			log.Error("invalid credentials", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid credentials"))
		case errors.Is(err, models.ErrUserBanned):
			log.Error("user is banned", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("user is banned"))
		case errors.Is(err, models.ErrHwidRequired):
			log.Error("hwid is required", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("hwid is required"))
		case errors.Is(err, models.ErrHwidBlacklisted):
			log.Error("hwid is blacklisted", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("hwid is blacklisted"))
		case errors.Is(err, models.ErrHwidMismatch):
			log.Error("hwid mismatch", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("account is bound to another device"))
		default:
			log.Error("login failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not login"))
		}
		return
	}

	log.Info("client login success", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":         result.Token,
		"uac_level":     result.UACLevel,
		"username":      req.Username,
		"subscriptions": result.Subscriptions,
	}))
}
