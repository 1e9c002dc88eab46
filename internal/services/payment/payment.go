// Package payment оформление премиум-подписки: создание платежа, проверка
// статуса, идемпотентное подтверждение и сверка со шлюзом.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/wisepicks/internal/lib/metrics"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/paymentprovider"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
	"github.com/magabrotheeeer/wisepicks/internal/realtime"
	"github.com/magabrotheeeer/wisepicks/internal/services"
)

const (
	reconcileWindow   = 48 * time.Hour
	reconcileBatch    = 100
	reconcileInterval = time.Minute
)

// Repository хранилище платежей.
type Repository interface {
	CreatePayment(ctx context.Context, p models.Payment) (*models.Payment, error)
	SetPaymentURL(ctx context.Context, id int64, url string) error
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListPendingPayments(ctx context.Context, since time.Time, limit int) ([]*models.Payment, error)
	ConfirmPayment(ctx context.Context, paymentID int64, actorID *string, now time.Time) (*models.Activation, *models.User, *models.Notification, error)
}

// Gateway шлюз криптоплатежей.
type Gateway interface {
	CreateCharge(ctx context.Context, req paymentprovider.CreateChargeRequest) (*paymentprovider.Charge, error)
	GetCharge(ctx context.Context, id string) (*paymentprovider.Charge, error)
}

// EventPublisher публикует события для почтовых уведомлений.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Checkout ответ на создание платежа.
type Checkout struct {
	PaymentID  int64     `json:"payment_id"`
	ChargeID   string    `json:"charge_id"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Plan       string    `json:"plan"`
	PaymentURL string    `json:"payment_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Options настройки сервиса.
type Options struct {
	FrontendURL string
	CheckoutTTL time.Duration
}

// PaymentService бизнес-логика платежей.
type PaymentService struct {
	repo    Repository
	gateway Gateway
	rt      realtime.Publisher
	events  EventPublisher
	log     *slog.Logger
	opts    Options
	now     func() time.Time
}

// New создаёт сервис. gateway и events могут быть nil: без шлюза платежи
// подтверждаются вручную, без брокера письма не отправляются.
func New(repo Repository, gateway Gateway, rt realtime.Publisher, events EventPublisher, log *slog.Logger, opts Options) *PaymentService {
	if opts.CheckoutTTL <= 0 {
		opts.CheckoutTTL = time.Hour
	}
	opts.FrontendURL = strings.TrimSuffix(opts.FrontendURL, "/")
	return &PaymentService{
		repo:    repo,
		gateway: gateway,
		rt:      rt,
		events:  events,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

// Checkout создаёт платёж в статусе pending по тарифному плану.
func (s *PaymentService) Checkout(ctx context.Context, user *models.User, planName string) (*Checkout, error) {
	const op = "payment.Checkout"
	plan, ok := models.Plans[planName]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, services.ErrInvalidPlan, planName)
	}
	amount := strconv.FormatFloat(plan.Amount, 'f', 2, 64)
	p := models.Payment{
		UserID:    user.ID,
		Amount:    plan.Amount,
		Currency:  plan.Currency,
		Plan:      plan.Name,
		Duration:  plan.Duration,
		ExpiresAt: s.now().Add(s.opts.CheckoutTTL),
	}

	if s.gateway != nil {
		charge, err := s.gateway.CreateCharge(ctx, paymentprovider.CreateChargeRequest{
			Name:        plan.Name,
			Description: plan.Description,
			LocalPrice:  paymentprovider.Money{Amount: amount, Currency: plan.Currency},
			Metadata:    map[string]string{"user_id": user.ID, "plan": plan.Name},
			RedirectURL: s.opts.FrontendURL + "/dashboard",
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.ChargeID = charge.ID
		p.PaymentURL = charge.HostedURL
		if !charge.ExpiresAt.IsZero() {
			p.ExpiresAt = charge.ExpiresAt
		}
	} else {
		p.ChargeID = "payment_" + uuid.NewString()
	}

	created, err := s.repo.CreatePayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.gateway == nil {
		created.PaymentURL = s.opts.FrontendURL + "/payment/manual/" + strconv.FormatInt(created.ID, 10)
		if err = s.repo.SetPaymentURL(ctx, created.ID, created.PaymentURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	metrics.CheckoutsTotal.WithLabelValues(plan.Name).Inc()

	return &Checkout{
		PaymentID:  created.ID,
		ChargeID:   created.ChargeID,
		Amount:     amount,
		Currency:   created.Currency,
		Plan:       created.Plan,
		PaymentURL: created.PaymentURL,
		ExpiresAt:  created.ExpiresAt,
	}, nil
}

// Status возвращает платёж владельцу или администратору.
func (s *PaymentService) Status(ctx context.Context, viewer *models.User, id int64) (*models.Payment, error) {
	const op = "payment.Status"
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserID != viewer.ID && !viewer.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, services.ErrForbidden)
	}
	return p, nil
}

// Confirm подтверждает платёж и активирует премиум. Повторный вызов не
// продлевает подписку и возвращает Activation с AlreadyConfirmed.
//
// Администратор подтверждает любой счёт. Владелец может подтвердить только
// неистёкший счёт, который шлюз считает оплаченным; без шлюза оплату
// подтверждает только администратор.
func (s *PaymentService) Confirm(ctx context.Context, actor *models.User, id int64) (*models.Activation, error) {
	const op = "payment.Confirm"
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserID != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, services.ErrForbidden)
	}
	if !actor.IsAdmin() && p.Status == models.PaymentPending {
		if s.gateway == nil {
			return nil, fmt.Errorf("%s: %w: manual payments are confirmed by an admin", op, services.ErrForbidden)
		}
		if !p.ExpiresAt.IsZero() && s.now().After(p.ExpiresAt) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrPaymentExpired)
		}
		charge, err := s.gateway.GetCharge(ctx, p.ChargeID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !charge.Paid() {
			return nil, fmt.Errorf("%s: %w: charge status %s", op, services.ErrPaymentNotCompleted, charge.Status())
		}
	}

	actorID := actor.ID
	activation, err := s.activate(ctx, id, &actorID, "manual")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return activation, nil
}

func (s *PaymentService) activate(ctx context.Context, id int64, actorID *string, source string) (*models.Activation, error) {
	activation, user, notif, err := s.repo.ConfirmPayment(ctx, id, actorID, s.now())
	if err != nil {
		return nil, err
	}
	if activation.AlreadyConfirmed {
		return activation, nil
	}
	metrics.PremiumActivationsTotal.WithLabelValues(source).Inc()
	s.afterActivation(ctx, activation, user, notif)
	return activation, nil
}

// afterActivation рассылает подсказки и событие для письма. Вызывается после
// коммита, ошибки только логируются.
func (s *PaymentService) afterActivation(ctx context.Context, a *models.Activation, user *models.User, notif *models.Notification) {
	log := s.log.With(slog.String("user_id", user.ID), slog.Int64("payment_id", a.Payment.ID))
	log.Info("premium activated", slog.Time("premium_until", a.PremiumUntil))

	events := []models.RealtimeEvent{
		{Type: models.EventPremiumStatusUpdated, Payload: map[string]time.Time{"premium_until": a.PremiumUntil}},
	}
	if notif != nil {
		events = append(events, models.RealtimeEvent{Type: models.EventNewNotification, Payload: notif})
	}
	for _, e := range events {
		if err := s.rt.ToUser(ctx, user.ID, e); err != nil {
			log.Warn("realtime push failed", slog.String("event", e.Type), sl.Err(err))
		}
	}

	if s.events == nil {
		return
	}
	msg := models.PremiumActivated{
		UserID:       user.ID,
		Email:        user.Email,
		Nickname:     user.Nickname,
		Plan:         a.Payment.Plan,
		PremiumUntil: a.PremiumUntil,
	}
	if err := s.events.Publish(ctx, rabbitmq.RoutingPremiumActivated, msg); err != nil {
		log.Warn("failed to publish premium_activated", sl.Err(err))
	}
}

// Reconcile проверяет у шлюза ожидающие платежи за последние двое суток
// и подтверждает оплаченные.
func (s *PaymentService) Reconcile(ctx context.Context) (int, error) {
	const op = "payment.Reconcile"
	if s.gateway == nil {
		return 0, nil
	}
	pending, err := s.repo.ListPendingPayments(ctx, s.now().Add(-reconcileWindow), reconcileBatch)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	confirmed := 0
	for _, p := range pending {
		log := s.log.With(slog.String("op", op), slog.Int64("payment_id", p.ID))
		charge, err := s.gateway.GetCharge(ctx, p.ChargeID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return confirmed, fmt.Errorf("%s: %w", op, err)
			}
			log.Warn("failed to get charge", sl.Err(err))
			continue
		}
		if !charge.Paid() {
			continue
		}
		a, err := s.activate(ctx, p.ID, nil, "gateway")
		if err != nil {
			log.Error("failed to confirm paid charge", sl.Err(err))
			continue
		}
		if !a.AlreadyConfirmed {
			confirmed++
		}
	}
	return confirmed, nil
}

// RunReconciler периодически вызывает Reconcile до отмены ctx.
func (s *PaymentService) RunReconciler(ctx context.Context, interval time.Duration) {
	const op = "payment.RunReconciler"
	log := s.log.With(slog.String("op", op))
	if s.gateway == nil {
		log.Info("payment reconciler disabled: gateway not configured")
		return
	}
	if interval <= 0 {
		interval = reconcileInterval
	}
	log.Info("payment reconciler started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("payment reconciler stopped")
			return
		case <-ticker.C:
			n, err := s.Reconcile(ctx)
			if err != nil {
				log.Error("reconcile failed", sl.Err(err))
				continue
			}
			if n > 0 {
				log.Info("payments confirmed by gateway", slog.Int("count", n))
			}
		}
	}
}
