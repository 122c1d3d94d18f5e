// Package licensecontrol собирает приложение: хранилище, кэш, сервисы,
// фоновые процессы и HTTP-сервер.
package licensecontrol

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/license-control/internal/cache"
	"github.com/magabrotheeeer/license-control/internal/config"
	"github.com/magabrotheeeer/license-control/internal/lib/jwt"
	"github.com/magabrotheeeer/license-control/internal/migrations"
	authservice "github.com/magabrotheeeer/license-control/internal/services/auth"
	licenseservice "github.com/magabrotheeeer/license-control/internal/services/license"
	reaperservice "github.com/magabrotheeeer/license-control/internal/services/reaper"
	trackerservice "github.com/magabrotheeeer/license-control/internal/services/tracker"
	"github.com/magabrotheeeer/license-control/internal/storage/repository"
)

// App агрегирует все компоненты сервиса.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *repository.Storage
	cache   *cache.Cache
	tracker *trackerservice.TrackerService
	reaper  *reaperservice.ReaperService
}

// New создает приложение: подключается к базе и кэшу, применяет миграции,
// собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.NewAuthService(db, cacheRedis, jwtMaker, logger)
	licenseService := licenseservice.NewLicenseService(db, cacheRedis, logger)
	tracker := trackerservice.NewTrackerService(db, logger, cfg.TrackerInterval, cfg.InactivityThreshold)
	reaper := reaperservice.NewReaperService(db, logger, cfg.ReaperInterval, cfg.ReaperIdleInterval)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, licenseService, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		logger:  logger,
		db:      db,
		cache:   cacheRedis,
		tracker: tracker,
		reaper:  reaper,
	}, nil
}

// Run запускает фоновые процессы и HTTP-сервер, блокируется до отмены
// контекста, после чего останавливает сервер и дожидается фоновых процессов.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.tracker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.reaper.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		wg.Wait()
		_ = a.db.DB.Close()
		return err
	}
}
