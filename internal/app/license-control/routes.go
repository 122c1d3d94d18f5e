// Package licensecontrol предоставляет маршруты для основного приложения.
package licensecontrol

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/license-control/internal/config"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/admin/banuser"
	adminresethwid "github.com/magabrotheeeer/license-control/internal/http/handlers/admin/resethwid"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/admin/resetpassword"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/auth/loginclient"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/auth/loginweb"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/health"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/license/activate"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/license/deleteused"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/license/extend"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/license/generate"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/license/list"
	licenseresethwid "github.com/magabrotheeeer/license-control/internal/http/handlers/license/resethwid"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/uac/change"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/uac/fetch"
	uacvalidate "github.com/magabrotheeeer/license-control/internal/http/handlers/uac/validate"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/user/activeusers"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/user/activity"
	"github.com/magabrotheeeer/license-control/internal/http/handlers/user/profile"
	"github.com/magabrotheeeer/license-control/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/license-control/internal/services/auth"
	licenseservice "github.com/magabrotheeeer/license-control/internal/services/license"
	"github.com/magabrotheeeer/license-control/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.AuthService, licenseService *licenseservice.LicenseService,
	db *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Post("/login-web", loginweb.New(logger, authService).ServeHTTP)
		r.Post("/login-client", loginclient.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/licenses/activate", activate.New(logger, licenseService).ServeHTTP)
			r.Post("/licenses/extend", extend.New(logger, licenseService).ServeHTTP)
			r.Get("/licenses", list.New(logger, licenseService).ServeHTTP)
			r.Post("/update-activity", activity.New(logger, authService).ServeHTTP)
			r.Get("/active-users", activeusers.New(logger, authService).ServeHTTP)
			r.Get("/users/{username}", profile.New(logger, authService).ServeHTTP)

			// Административные конечные точки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireUACMiddleware(logger, cfg.AdminUACLevel))

				r.Post("/licenses/generate", generate.New(logger, licenseService).ServeHTTP)
				r.Post("/licenses/reset-hwid", licenseresethwid.New(logger, licenseService).ServeHTTP)
				r.Delete("/licenses/used", deleteused.New(logger, licenseService).ServeHTTP)

				r.Post("/uac/change", change.New(logger, authService).ServeHTTP)
				r.Post("/uac/validate", uacvalidate.New(logger, authService).ServeHTTP)
				r.Get("/uac/{username}", fetch.New(logger, authService).ServeHTTP)

				r.Post("/admin/ban", banuser.New(logger, authService).ServeHTTP)
				r.Post("/admin/reset-password", resetpassword.New(logger, authService).ServeHTTP)
				r.Post("/admin/reset-hwid", adminresethwid.New(logger, authService).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", health.New(logger, db).ServeHTTP)
}
