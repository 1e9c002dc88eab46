// Package admin модерация пользователей и сводка для административной панели.
// Каждое действие пишет запись в activity_log в одной транзакции с изменением.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/access"
	"github.com/magabrotheeeer/wisepicks/internal/lib/metrics"
	"github.com/magabrotheeeer/wisepicks/internal/lib/password"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
	"github.com/magabrotheeeer/wisepicks/internal/realtime"
	"github.com/magabrotheeeer/wisepicks/internal/services"
)

const (
	// DefaultPremiumDays срок премиума, если администратор его не указал.
	DefaultPremiumDays = 30
	// MinPasswordLength минимальная длина нового пароля.
	MinPasswordLength = 6

	statsWindow         = 30 * 24 * time.Hour
	recentActivityLimit = 10
	defaultUsersLimit   = 100
)

// Repository хранилище для административных операций.
type Repository interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	CountUsers(ctx context.Context, now time.Time) (total, premium int, err error)
	CountPendingTips(ctx context.Context) (int, error)
	TipStatsSince(ctx context.Context, since time.Time) (models.TipStats, error)
	RecentActivity(ctx context.Context, limit int) ([]*models.Activity, error)
	SetBanned(ctx context.Context, userID string, banned bool, actorID string) (*models.User, error)
	GrantPremium(ctx context.Context, userID string, until time.Time, actorID string) (*models.User, *models.Notification, error)
	RemovePremium(ctx context.Context, userID, actorID string) (*models.User, error)
	ResetPassword(ctx context.Context, userID, passwordHash, actorID string) error
}

// EventPublisher публикует события для почтовых уведомлений.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// UserView пользователь в административном списке.
type UserView struct {
	*models.User
	IsPremium bool `json:"is_premium"`
}

// AdminService бизнес-логика административной панели.
type AdminService struct {
	repo   Repository
	rt     realtime.Publisher
	events EventPublisher
	log    *slog.Logger
	now    func() time.Time
}

// New создаёт сервис. events может быть nil.
func New(repo Repository, rt realtime.Publisher, events EventPublisher, log *slog.Logger) *AdminService {
	return &AdminService{repo: repo, rt: rt, events: events, log: log, now: time.Now}
}

// ListUsers возвращает пользователей, новые первыми.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]UserView, error) {
	const op = "admin.ListUsers"
	if limit <= 0 {
		limit = defaultUsersLimit
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, UserView{User: u, IsPremium: access.IsPremium(u, now)})
	}
	return out, nil
}

// Stats сводка: пользователи, премиум, активные прогнозы, процент выигрышей
// за 30 дней и последние действия.
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	const op = "admin.Stats"
	now := s.now()
	total, premium, err := s.repo.CountUsers(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	active, err := s.repo.CountPendingTips(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st, err := s.repo.TipStatsSince(ctx, now.Add(-statsWindow))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	activity, err := s.repo.RecentActivity(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	winRate := "0.00"
	if st.Settled > 0 {
		winRate = fmt.Sprintf("%.2f", float64(st.Won)/float64(st.Settled)*100)
	}
	return &models.AdminStats{
		TotalUsers:     total,
		PremiumUsers:   premium,
		ActiveTips:     active,
		WinRate:        winRate,
		RecentActivity: activity,
	}, nil
}

// Ban блокирует пользователя. Администратор не может заблокировать сам себя.
func (s *AdminService) Ban(ctx context.Context, actor *models.User, userID string) (*models.User, error) {
	const op = "admin.Ban"
	if actor.ID == userID {
		return nil, fmt.Errorf("%s: %w: cannot ban yourself", op, services.ErrForbidden)
	}
	u, err := s.repo.SetBanned(ctx, userID, true, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.record(op, models.ActionBanUser, actor, userID)
	return u, nil
}

// Unban снимает блокировку.
func (s *AdminService) Unban(ctx context.Context, actor *models.User, userID string) (*models.User, error) {
	const op = "admin.Unban"
	u, err := s.repo.SetBanned(ctx, userID, false, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.record(op, models.ActionUnbanUser, actor, userID)
	return u, nil
}

// GrantPremium выставляет premium_until = now + days. При days <= 0 берётся
// DefaultPremiumDays.
func (s *AdminService) GrantPremium(ctx context.Context, actor *models.User, userID string, days int) (*models.User, error) {
	const op = "admin.GrantPremium"
	if days <= 0 {
		days = DefaultPremiumDays
	}
	until := s.now().Add(time.Duration(days) * 24 * time.Hour)
	u, notif, err := s.repo.GrantPremium(ctx, userID, until, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.record(op, models.ActionGrantPremium, actor, userID)
	metrics.PremiumActivationsTotal.WithLabelValues("admin").Inc()

	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))
	s.push(ctx, log, userID, models.RealtimeEvent{
		Type:    models.EventPremiumStatusUpdated,
		Payload: map[string]*time.Time{"premium_until": u.PremiumUntil},
	})
	if notif != nil {
		s.push(ctx, log, userID, models.RealtimeEvent{Type: models.EventNewNotification, Payload: notif})
	}
	if s.events != nil {
		msg := models.PremiumActivated{
			UserID:       u.ID,
			Email:        u.Email,
			Nickname:     u.Nickname,
			Plan:         "admin",
			PremiumUntil: until,
		}
		if err := s.events.Publish(ctx, rabbitmq.RoutingPremiumActivated, msg); err != nil {
			log.Warn("failed to publish premium_activated", sl.Err(err))
		}
	}
	return u, nil
}

// RemovePremium обнуляет premium_until.
func (s *AdminService) RemovePremium(ctx context.Context, actor *models.User, userID string) (*models.User, error) {
	const op = "admin.RemovePremium"
	u, err := s.repo.RemovePremium(ctx, userID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.record(op, models.ActionRemovePremium, actor, userID)
	s.push(ctx, s.log.With(slog.String("op", op), slog.String("user_id", userID)), userID, models.RealtimeEvent{
		Type:    models.EventPremiumStatusUpdated,
		Payload: map[string]*time.Time{"premium_until": nil},
	})
	return u, nil
}

// ResetPassword задаёт пользователю новый пароль.
func (s *AdminService) ResetPassword(ctx context.Context, actor *models.User, userID, newPassword string) error {
	const op = "admin.ResetPassword"
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%s: %w: password must be at least %d characters", op, services.ErrInvalidInput, MinPasswordLength)
	}
	hash, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.repo.ResetPassword(ctx, userID, hash, actor.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.record(op, models.ActionResetPassword, actor, userID)
	return nil
}

func (s *AdminService) record(op, action string, actor *models.User, userID string) {
	metrics.AdminActionsTotal.WithLabelValues(action).Inc()
	s.log.Info("admin action",
		slog.String("op", op),
		slog.String("actor_id", actor.ID),
		slog.String("target_id", userID),
	)
}

func (s *AdminService) push(ctx context.Context, log *slog.Logger, userID string, e models.RealtimeEvent) {
	if err := s.rt.ToUser(ctx, userID, e); err != nil {
		log.Warn("realtime push failed", slog.String("event", e.Type), sl.Err(err))
	}
}
