// Package activeusers реализует HTTP-обработчик подсчета активных пользователей.
package activeusers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/license-control/internal/http/response"
	"github.com/magabrotheeeer/license-control/internal/lib/sl"
)

// Handler обрабатывает HTTP-запросы подсчета активных пользователей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики подсчета активных пользователей.
type Service interface {
	ActiveUsers(ctx context.Context) (int, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.activeusers"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	count, err := h.service.ActiveUsers(r.Context())
	if err != nil {
		log.Error("failed to count active users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not count active users"))
		return
	}

	log.Info("counted active users", slog.Int("count", count))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"active_users": count,
	}))
}
