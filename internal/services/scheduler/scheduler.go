// Package scheduler периодически ищет истекающие премиум-подписки и
// публикует события premium_expiring для отправки писем.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
)

// UserRepository поиск пользователей с истекающим премиумом.
type UserRepository interface {
	FindPremiumExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error)
}

// Publisher публикует сообщение в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SchedulerService периодическая задача напоминаний.
type SchedulerService struct {
	repo      UserRepository
	publisher Publisher
	log       *slog.Logger
	interval  time.Duration
	window    time.Duration
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService. Каждый запуск
// выбирает подписки, истекающие в интервале (now+window-interval, now+window],
// поэтому при регулярных запусках пользователь получает одно напоминание.
func NewSchedulerService(repo UserRepository, publisher Publisher, log *slog.Logger, interval, window time.Duration) *SchedulerService {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		interval:  interval,
		window:    window,
		now:       time.Now,
	}
}

// Run выполняет проверку сразу и затем по тикеру до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.log.Info("scheduler started",
		slog.Duration("interval", s.interval),
		slog.Duration("window", s.window),
	)
	if _, err := s.NotifyExpiring(ctx); err != nil {
		s.log.Error("expiring check failed", sl.Err(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.NotifyExpiring(ctx); err != nil {
				s.log.Error("expiring check failed", sl.Err(err))
			}
		}
	}
}

// NotifyExpiring публикует premium_expiring для каждой найденной подписки
// и возвращает количество опубликованных сообщений. Ошибка публикации
// отдельного сообщения только логируется.
func (s *SchedulerService) NotifyExpiring(ctx context.Context) (int, error) {
	const op = "scheduler.NotifyExpiring"
	now := s.now()
	to := now.Add(s.window)
	from := now
	if s.interval < s.window {
		from = to.Add(-s.interval)
	}

	users, err := s.repo.FindPremiumExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		s.log.Info("no expiring subscriptions found")
		return 0, nil
	}
	s.log.Info("found expiring subscriptions", slog.Int("count", len(users)))

	sent := 0
	for _, u := range users {
		if u.PremiumUntil == nil {
			continue
		}
		msg := models.PremiumExpiring{
			UserID:       u.ID,
			Email:        u.Email,
			Nickname:     u.Nickname,
			PremiumUntil: *u.PremiumUntil,
		}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingPremiumExpiring, msg); err != nil {
			s.log.Error("failed to publish message", slog.String("user_id", u.ID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}
