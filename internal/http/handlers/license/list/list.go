// Package list реализует HTTP-обработчик выборки лицензий.
//
// Выборка задается параметрами запроса: subscription_name, username или status.
// Без параметров возвращаются лицензии авторизованного пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/license-control/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-control/internal/http/response"
	"github.com/magabrotheeeer/license-control/internal/lib/sl"
	"github.com/magabrotheeeer/license-control/internal/models"
)

// Handler обрабатывает HTTP-запросы выборки лицензий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выборки лицензий.
type Service interface {
	ListBySubscription(ctx context.Context, subscriptionName string) ([]*models.License, error)
	ListByUsername(ctx context.Context, username string) ([]*models.License, error)
	ListByStatus(ctx context.Context, isActive bool) ([]*models.License, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.license.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var (
		licenses []*models.License
		err      error
	)

	query := r.URL.Query()
	switch {
	case query.Get("subscription_name") != "":
		licenses, err = h.service.ListBySubscription(r.Context(), query.Get("subscription_name"))
	case query.Get("username") != "":
		licenses, err = h.service.ListByUsername(r.Context(), query.Get("username"))
	case query.Get("status") != "":
		var isActive bool
		isActive, err = strconv.ParseBool(query.Get("status"))
		if err != nil {
			log.Error("failed to parse status param", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("status must be true or false"))
			return
		}
		licenses, err = h.service.ListByStatus(r.Context(), isActive)
	default:
		username, ok := r.Context().Value(middlewarectx.User).(string)
		if !ok || username == "" {
			log.Error("username not found in context")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
			return
		}
		licenses, err = h.service.ListByUsername(r.Context(), username)
	}

	if err != nil {
		log.Error("failed to list licenses", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list licenses"))
		return
	}

	log.Info("success to list licenses", slog.Int("count", len(licenses)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"licenses": licenses,
		"count":    len(licenses),
	}))
}
