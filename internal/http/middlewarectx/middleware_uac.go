package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/license-control/internal/http/response"
)

// RequireUACMiddleware создает middleware, пропускающий только пользователей,
// чей уровень доступа не ниже requiredLevel. Уровень берется из контекста,
// куда его кладет JWTMiddleware.
func RequireUACMiddleware(log *slog.Logger, requiredLevel int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireUACMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			level, ok := r.Context().Value(UACLevel).(int)
			if !ok {
				log.Error("uac level missing in context")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}

			if level < requiredLevel {
				log.Error("access denied",
					slog.Int("uac_level", level),
					slog.Int("required_level", requiredLevel))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
