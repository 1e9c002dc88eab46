// Package tips управляет лентой прогнозов: выдача с учётом премиум-доступа,
// создание с оповещением пользователей, удаление и расчёт результата.
package tips

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/access"
	"github.com/magabrotheeeer/wisepicks/internal/lib/metrics"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/realtime"
	"github.com/magabrotheeeer/wisepicks/internal/services"
)

const (
	feedCacheKey = "tips:all"
	feedCacheTTL = time.Minute
)

// Repository хранилище прогнозов и уведомлений.
type Repository interface {
	ListTips(ctx context.Context, limit int) ([]*models.Tip, error)
	CreateTip(ctx context.Context, tip models.NewTip, createdBy string) (*models.Tip, error)
	DeleteTip(ctx context.Context, id int64) error
	UpdateTipResult(ctx context.Context, id int64, result string) (*models.Tip, error)
	NotifyAllUsers(ctx context.Context, title, message string) ([]string, error)
}

// Cache кэш полной ленты прогнозов. Хранится без редактирования,
// редактирование применяется на каждый запрос.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// TipService бизнес-логика прогнозов.
type TipService struct {
	repo  Repository
	cache Cache
	rt    realtime.Publisher
	log   *slog.Logger
	now   func() time.Time
}

// New создаёт сервис прогнозов.
func New(repo Repository, cache Cache, rt realtime.Publisher, log *slog.Logger) *TipService {
	return &TipService{
		repo:  repo,
		cache: cache,
		rt:    rt,
		log:   log,
		now:   time.Now,
	}
}

// List возвращает все прогнозы от новых к старым. Премиум-прогнозы для
// пользователя без доступа отдаются без prediction, odds и stake.
func (s *TipService) List(ctx context.Context, viewer *models.User) ([]*models.Tip, error) {
	const op = "tips.List"
	var all []*models.Tip
	found, err := s.cache.Get(ctx, feedCacheKey, &all)
	if err != nil {
		s.log.Warn("tips cache read failed", slog.String("op", op), sl.Err(err))
	}
	if !found {
		all, err = s.repo.ListTips(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err = s.cache.Set(ctx, feedCacheKey, all, feedCacheTTL); err != nil {
			s.log.Warn("tips cache write failed", slog.String("op", op), sl.Err(err))
		}
	}
	return access.RedactTips(all, viewer, s.now()), nil
}

// Create сохраняет прогноз, создаёт уведомление каждому активному пользователю
// и рассылает realtime-подсказки.
func (s *TipService) Create(ctx context.Context, actor *models.User, in models.NewTip) (*models.Tip, error) {
	const op = "tips.Create"
	if in.Result != "" && !models.ValidTipResult(in.Result) {
		return nil, fmt.Errorf("%s: %w: result %q", op, services.ErrInvalidInput, in.Result)
	}
	tip, err := s.repo.CreateTip(ctx, in, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)
	metrics.TipsCreatedTotal.Inc()

	log := s.log.With(slog.String("op", op), slog.Int64("tip_id", tip.ID))
	title, message := models.NewTipNotice(tip.Match)
	userIDs, err := s.repo.NotifyAllUsers(ctx, title, message)
	if err != nil {
		log.Error("failed to create tip notifications", sl.Err(err))
	}
	for _, id := range userIDs {
		event := models.RealtimeEvent{
			Type:    models.EventNewNotification,
			Payload: map[string]string{"title": title, "message": message},
		}
		if err := s.rt.ToUser(ctx, id, event); err != nil {
			log.Warn("realtime notification failed", slog.String("user_id", id), sl.Err(err))
		}
	}
	s.broadcast(ctx, log, models.EventNewTip, tip.ID)
	log.Info("tip created", slog.Int("notified", len(userIDs)))
	return tip, nil
}

// Delete удаляет прогноз.
func (s *TipService) Delete(ctx context.Context, id int64) error {
	const op = "tips.Delete"
	if err := s.repo.DeleteTip(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)
	s.broadcast(ctx, s.log.With(slog.String("op", op)), models.EventDeleteTip, id)
	return nil
}

// SetResult выставляет результат прогноза: pending, won или lost.
func (s *TipService) SetResult(ctx context.Context, id int64, result string) (*models.Tip, error) {
	const op = "tips.SetResult"
	if !models.ValidTipResult(result) {
		return nil, fmt.Errorf("%s: %w: result %q", op, services.ErrInvalidInput, result)
	}
	tip, err := s.repo.UpdateTipResult(ctx, id, result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)
	s.broadcast(ctx, s.log.With(slog.String("op", op)), models.EventUpdateTip, id)
	return tip, nil
}

func (s *TipService) invalidate(ctx context.Context, op string) {
	if err := s.cache.Invalidate(ctx, feedCacheKey); err != nil {
		s.log.Warn("tips cache invalidate failed", slog.String("op", op), sl.Err(err))
	}
}

// broadcast рассылает только id прогноза: клиент перечитывает ленту сам,
// поэтому премиум-содержимое не попадает в общий канал.
func (s *TipService) broadcast(ctx context.Context, log *slog.Logger, eventType string, id int64) {
	event := models.RealtimeEvent{Type: eventType, Payload: map[string]int64{"id": id}}
	if err := s.rt.Broadcast(ctx, event); err != nil {
		log.Warn("realtime broadcast failed", slog.String("event", eventType), sl.Err(err))
	}
}
