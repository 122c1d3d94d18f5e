// Package services содержит трекер активности: фоновый процесс, который
// помечает неактивными пользователей без недавнего heartbeat.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/license-control/internal/lib/sl"
	"github.com/magabrotheeeer/license-control/internal/metrics"
)

// UserRepository описывает контракт для отметки неактивных пользователей.
type UserRepository interface {
	MarkInactiveUsers(ctx context.Context, cutoff time.Time) (int, error)
}

// TrackerService периодически помечает неактивными пользователей,
// чей last_activity старше порога.
type TrackerService struct {
	repo      UserRepository
	log       *slog.Logger
	interval  time.Duration
	threshold time.Duration
}

// NewTrackerService создает новый экземпляр TrackerService.
func NewTrackerService(repo UserRepository, log *slog.Logger, interval, threshold time.Duration) *TrackerService {
	return &TrackerService{
		repo:      repo,
		log:       log,
		interval:  interval,
		threshold: threshold,
	}
}

// Run запускает цикл трекера до отмены контекста.
func (s *TrackerService) Run(ctx context.Context) {
	s.log.Info("activity tracker started",
		slog.Duration("interval", s.interval),
		slog.Duration("threshold", s.threshold))

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("activity tracker stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *TrackerService) runOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.threshold)
	count, err := s.repo.MarkInactiveUsers(ctx, cutoff)
	if err != nil {
		s.log.Error("failed to mark inactive users", sl.Err(err))
		return
	}
	if count == 0 {
		return
	}
	metrics.UsersDeactivated.Add(float64(count))
	s.log.Info("marked users inactive", slog.Int("count", count))
}
