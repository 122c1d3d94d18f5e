// Package services содержит сборщик просроченных лицензий: фоновый процесс,
// который переносит истекшие активные лицензии в архив.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/license-control/internal/lib/sl"
	"github.com/magabrotheeeer/license-control/internal/metrics"
)

// LicenseRepository описывает контракт для переноса просроченных лицензий.
type LicenseRepository interface {
	ReapExpiredLicenses(ctx context.Context, now time.Time) (int, error)
}

// ReaperService периодически переносит просроченные лицензии в архив.
// Когда проход не находит просроченных лицензий, следующий запускается
// через более долгий интервал простоя.
type ReaperService struct {
	repo         LicenseRepository
	log          *slog.Logger
	interval     time.Duration
	idleInterval time.Duration
}

// NewReaperService создает новый экземпляр ReaperService.
func NewReaperService(repo LicenseRepository, log *slog.Logger, interval, idleInterval time.Duration) *ReaperService {
	return &ReaperService{
		repo:         repo,
		log:          log,
		interval:     interval,
		idleInterval: idleInterval,
	}
}

// Run запускает цикл сборщика до отмены контекста.
func (s *ReaperService) Run(ctx context.Context) {
	s.log.Info("license reaper started",
		slog.Duration("interval", s.interval),
		slog.Duration("idle_interval", s.idleInterval))

	reaped := s.runOnce(ctx)

	ticker := time.NewTicker(s.nextInterval(reaped))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("license reaper stopped")
			return
		case <-ticker.C:
			reaped = s.runOnce(ctx)
			ticker.Reset(s.nextInterval(reaped))
		}
	}
}

func (s *ReaperService) runOnce(ctx context.Context) int {
	count, err := s.repo.ReapExpiredLicenses(ctx, time.Now())
	if err != nil {
		s.log.Error("failed to reap expired licenses", sl.Err(err))
		return 0
	}
	if count == 0 {
		return 0
	}
	metrics.LicensesReaped.Add(float64(count))
	s.log.Info("moved expired licenses to archive", slog.Int("count", count))
	return count
}

func (s *ReaperService) nextInterval(reaped int) time.Duration {
	if reaped == 0 {
		return s.idleInterval
	}
	return s.interval
}
