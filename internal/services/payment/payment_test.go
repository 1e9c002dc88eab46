package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/paymentprovider"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
	"github.com/magabrotheeeer/wisepicks/internal/services"
	"github.com/magabrotheeeer/wisepicks/internal/storage/repository"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreatePayment(ctx context.Context, p models.Payment) (*models.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockRepository) SetPaymentURL(ctx context.Context, id int64, url string) error {
	return m.Called(ctx, id, url).Error(0)
}

func (m *MockRepository) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockRepository) ListPendingPayments(ctx context.Context, since time.Time, limit int) ([]*models.Payment, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockRepository) ConfirmPayment(ctx context.Context, paymentID int64, actorID *string, now time.Time) (*models.Activation, *models.User, *models.Notification, error) {
	args := m.Called(ctx, paymentID, actorID, now)
	var (
		a *models.Activation
		u *models.User
		n *models.Notification
	)
	if v := args.Get(0); v != nil {
		a = v.(*models.Activation)
	}
	if v := args.Get(1); v != nil {
		u = v.(*models.User)
	}
	if v := args.Get(2); v != nil {
		n = v.(*models.Notification)
	}
	return a, u, n, args.Error(3)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCharge(ctx context.Context, req paymentprovider.CreateChargeRequest) (*paymentprovider.Charge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Charge), args.Error(1)
}

func (m *MockGateway) GetCharge(ctx context.Context, id string) (*paymentprovider.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Charge), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) ToUser(ctx context.Context, userID string, event models.RealtimeEvent) error {
	return m.Called(ctx, userID, event).Error(0)
}

func (m *MockPublisher) Broadcast(ctx context.Context, event models.RealtimeEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *PaymentService
	repo   *MockRepository
	gw     *MockGateway
	rt     *MockPublisher
	events *MockEvents
}

func newFixture(withGateway bool) *fixture {
	f := &fixture{
		repo:   new(MockRepository),
		rt:     new(MockPublisher),
		events: new(MockEvents),
	}
	var gw Gateway
	if withGateway {
		f.gw = new(MockGateway)
		gw = f.gw
	}
	f.svc = New(f.repo, gw, f.rt, f.events, newNoopLogger(), Options{
		FrontendURL: "http://localhost:5173/",
		CheckoutTTL: time.Hour,
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func owner() *models.User {
	return &models.User{ID: "u-1", Email: "bob@example.com", Nickname: "bob", Role: models.RoleUser}
}

func TestPaymentService_Checkout_Manual(t *testing.T) {
	f := newFixture(false)

	f.repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
		return p.UserID == "u-1" &&
			strings.HasPrefix(p.ChargeID, "payment_") &&
			p.Amount == 29.99 && p.Duration == 30 &&
			p.ExpiresAt.Equal(fixedNow.Add(time.Hour))
	})).Return(&models.Payment{ID: 7, UserID: "u-1", Currency: "USD", Plan: "monthly", Status: models.PaymentPending}, nil).Once()
	f.repo.On("SetPaymentURL", mock.Anything, int64(7), "http://localhost:5173/payment/manual/7").Return(nil).Once()

	got, err := f.svc.Checkout(context.Background(), owner(), "monthly")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.PaymentID)
	assert.Equal(t, "29.99", got.Amount)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "http://localhost:5173/payment/manual/7", got.PaymentURL)
	f.repo.AssertExpectations(t)
}

func TestPaymentService_Checkout_Gateway(t *testing.T) {
	f := newFixture(true)
	expires := fixedNow.Add(30 * time.Minute)

	f.gw.On("CreateCharge", mock.Anything, mock.MatchedBy(func(r paymentprovider.CreateChargeRequest) bool {
		return r.LocalPrice.Amount == "79.99" && r.Metadata["user_id"] == "u-1" && r.Name == "quarterly"
	})).Return(&paymentprovider.Charge{ID: "ch_1", HostedURL: "https://pay.example/ch_1", ExpiresAt: expires}, nil).Once()
	f.repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
		return p.ChargeID == "ch_1" && p.PaymentURL == "https://pay.example/ch_1" && p.ExpiresAt.Equal(expires)
	})).Return(&models.Payment{ID: 3, ChargeID: "ch_1", Currency: "USD", Plan: "quarterly", PaymentURL: "https://pay.example/ch_1", ExpiresAt: expires}, nil).Once()

	got, err := f.svc.Checkout(context.Background(), owner(), "quarterly")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/ch_1", got.PaymentURL)
	f.repo.AssertNotCalled(t, "SetPaymentURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Checkout_Errors(t *testing.T) {
	t.Run("unknown plan", func(t *testing.T) {
		f := newFixture(false)
		_, err := f.svc.Checkout(context.Background(), owner(), "weekly")
		assert.ErrorIs(t, err, services.ErrInvalidPlan)
		f.repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})

	t.Run("gateway failure", func(t *testing.T) {
		f := newFixture(true)
		boom := errors.New("gateway down")
		f.gw.On("CreateCharge", mock.Anything, mock.Anything).Return(nil, boom).Once()
		_, err := f.svc.Checkout(context.Background(), owner(), "monthly")
		assert.ErrorIs(t, err, boom)
		f.repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_Status(t *testing.T) {
	f := newFixture(false)
	f.repo.On("GetPayment", mock.Anything, int64(1)).Return(&models.Payment{ID: 1, UserID: "u-1"}, nil)
	f.repo.On("GetPayment", mock.Anything, int64(2)).Return(nil, repository.ErrNotFound)

	p, err := f.svc.Status(context.Background(), owner(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	_, err = f.svc.Status(context.Background(), &models.User{ID: "u-2", Role: models.RoleUser}, 1)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.svc.Status(context.Background(), &models.User{ID: "adm", Role: models.RoleAdmin}, 1)
	assert.NoError(t, err)

	_, err = f.svc.Status(context.Background(), owner(), 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPaymentService_Confirm_FirstActivation(t *testing.T) {
	f := newFixture(true)
	u := owner()
	until := fixedNow.Add(30 * 24 * time.Hour)
	payment := &models.Payment{
		ID:        5,
		UserID:    u.ID,
		ChargeID:  "ch_5",
		Plan:      "monthly",
		Status:    models.PaymentPending,
		ExpiresAt: fixedNow.Add(time.Hour),
	}
	notif := &models.Notification{ID: 11, UserID: u.ID, Title: "Premium Subscription Activated"}

	f.repo.On("GetPayment", mock.Anything, int64(5)).Return(payment, nil).Once()
	f.gw.On("GetCharge", mock.Anything, "ch_5").Return(&paymentprovider.Charge{
		ID:       "ch_5",
		Timeline: []paymentprovider.TimelineEntry{{Status: paymentprovider.StatusNew}, {Status: paymentprovider.StatusCompleted}},
	}, nil).Once()
	f.repo.On("ConfirmPayment", mock.Anything, int64(5), mock.MatchedBy(func(id *string) bool {
		return id != nil && *id == u.ID
	}), fixedNow).Return(&models.Activation{Payment: payment, PremiumUntil: until}, u, notif, nil).Once()
	f.rt.On("ToUser", mock.Anything, u.ID, mock.MatchedBy(func(e models.RealtimeEvent) bool {
		return e.Type == models.EventPremiumStatusUpdated
	})).Return(nil).Once()
	f.rt.On("ToUser", mock.Anything, u.ID, models.RealtimeEvent{Type: models.EventNewNotification, Payload: notif}).Return(nil).Once()
	f.events.On("Publish", mock.Anything, rabbitmq.RoutingPremiumActivated, models.PremiumActivated{
		UserID: u.ID, Email: u.Email, Nickname: u.Nickname, Plan: "monthly", PremiumUntil: until,
	}).Return(errors.New("broker down")).Once()

	a, err := f.svc.Confirm(context.Background(), u, 5)
	require.NoError(t, err, "broker failure must not fail the confirmation")
	assert.False(t, a.AlreadyConfirmed)
	assert.Equal(t, until, a.PremiumUntil)
	f.rt.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestPaymentService_Confirm_AlreadyConfirmed(t *testing.T) {
	f := newFixture(false)
	u := owner()
	payment := &models.Payment{ID: 5, UserID: u.ID, Status: models.PaymentCompleted}

	f.repo.On("GetPayment", mock.Anything, int64(5)).Return(payment, nil).Once()
	f.repo.On("ConfirmPayment", mock.Anything, int64(5), mock.Anything, fixedNow).
		Return(&models.Activation{Payment: payment, AlreadyConfirmed: true}, u, nil, nil).Once()

	a, err := f.svc.Confirm(context.Background(), u, 5)
	require.NoError(t, err)
	assert.True(t, a.AlreadyConfirmed)
	f.rt.AssertNotCalled(t, "ToUser", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Confirm_Forbidden(t *testing.T) {
	f := newFixture(false)
	f.repo.On("GetPayment", mock.Anything, int64(5)).Return(&models.Payment{ID: 5, UserID: "someone-else"}, nil).Once()

	_, err := f.svc.Confirm(context.Background(), owner(), 5)
	assert.ErrorIs(t, err, services.ErrForbidden)
	f.repo.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Confirm_ManualRequiresAdmin(t *testing.T) {
	u := owner()
	payment := &models.Payment{ID: 9, UserID: u.ID, Plan: "yearly", Duration: 365, Status: models.PaymentPending}

	t.Run("owner", func(t *testing.T) {
		f := newFixture(false)
		f.repo.On("GetPayment", mock.Anything, int64(9)).Return(payment, nil).Once()

		a, err := f.svc.Confirm(context.Background(), u, 9)
		assert.Nil(t, a)
		assert.ErrorIs(t, err, services.ErrForbidden)
		f.repo.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.rt.AssertNotCalled(t, "ToUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin", func(t *testing.T) {
		f := newFixture(false)
		admin := &models.User{ID: "adm", Role: models.RoleAdmin}
		until := fixedNow.Add(365 * 24 * time.Hour)
		f.repo.On("GetPayment", mock.Anything, int64(9)).Return(payment, nil).Once()
		f.repo.On("ConfirmPayment", mock.Anything, int64(9), mock.MatchedBy(func(id *string) bool {
			return id != nil && *id == "adm"
		}), fixedNow).Return(&models.Activation{Payment: payment, PremiumUntil: until}, u, nil, nil).Once()
		f.rt.On("ToUser", mock.Anything, u.ID, mock.Anything).Return(nil).Once()
		f.events.On("Publish", mock.Anything, rabbitmq.RoutingPremiumActivated, mock.Anything).Return(nil).Once()

		a, err := f.svc.Confirm(context.Background(), admin, 9)
		require.NoError(t, err)
		assert.Equal(t, until, a.PremiumUntil)
		f.repo.AssertExpectations(t)
	})
}

func TestPaymentService_Confirm_Expired(t *testing.T) {
	f := newFixture(true)
	u := owner()
	f.repo.On("GetPayment", mock.Anything, int64(5)).Return(&models.Payment{
		ID:        5,
		UserID:    u.ID,
		ChargeID:  "ch_5",
		Status:    models.PaymentPending,
		ExpiresAt: fixedNow.Add(-time.Minute),
	}, nil).Once()

	_, err := f.svc.Confirm(context.Background(), u, 5)
	assert.ErrorIs(t, err, services.ErrPaymentExpired)
	f.gw.AssertNotCalled(t, "GetCharge", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Confirm_GatewayUnpaid(t *testing.T) {
	f := newFixture(true)
	u := owner()
	f.repo.On("GetPayment", mock.Anything, int64(5)).
		Return(&models.Payment{ID: 5, UserID: u.ID, ChargeID: "ch_5", Status: models.PaymentPending}, nil).Once()
	f.gw.On("GetCharge", mock.Anything, "ch_5").Return(&paymentprovider.Charge{
		ID:       "ch_5",
		Timeline: []paymentprovider.TimelineEntry{{Status: paymentprovider.StatusNew}},
	}, nil).Once()

	_, err := f.svc.Confirm(context.Background(), u, 5)
	assert.ErrorIs(t, err, services.ErrPaymentNotCompleted)
	f.repo.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Confirm_AdminBypassesGateway(t *testing.T) {
	f := newFixture(true)
	admin := &models.User{ID: "adm", Role: models.RoleAdmin}
	u := owner()
	payment := &models.Payment{ID: 5, UserID: u.ID, ChargeID: "ch_5", Status: models.PaymentPending}
	f.repo.On("GetPayment", mock.Anything, int64(5)).Return(payment, nil).Once()
	f.repo.On("ConfirmPayment", mock.Anything, int64(5), mock.Anything, fixedNow).
		Return(&models.Activation{Payment: payment, PremiumUntil: fixedNow.Add(24 * time.Hour)}, u, nil, nil).Once()
	f.rt.On("ToUser", mock.Anything, u.ID, mock.Anything).Return(nil).Once()
	f.events.On("Publish", mock.Anything, rabbitmq.RoutingPremiumActivated, mock.Anything).Return(nil).Once()

	_, err := f.svc.Confirm(context.Background(), admin, 5)
	require.NoError(t, err)
	f.gw.AssertNotCalled(t, "GetCharge", mock.Anything, mock.Anything)
}

func TestPaymentService_Reconcile(t *testing.T) {
	f := newFixture(true)
	u := owner()
	paid := &models.Payment{ID: 1, UserID: u.ID, ChargeID: "ch_paid", Plan: "monthly"}
	unpaid := &models.Payment{ID: 2, UserID: u.ID, ChargeID: "ch_new"}
	broken := &models.Payment{ID: 3, UserID: u.ID, ChargeID: "ch_err"}

	f.repo.On("ListPendingPayments", mock.Anything, fixedNow.Add(-reconcileWindow), reconcileBatch).
		Return([]*models.Payment{paid, unpaid, broken}, nil).Once()
	f.gw.On("GetCharge", mock.Anything, "ch_paid").Return(&paymentprovider.Charge{
		Timeline: []paymentprovider.TimelineEntry{{Status: paymentprovider.StatusNew}, {Status: paymentprovider.StatusCompleted}},
	}, nil).Once()
	f.gw.On("GetCharge", mock.Anything, "ch_new").Return(&paymentprovider.Charge{
		Timeline: []paymentprovider.TimelineEntry{{Status: paymentprovider.StatusNew}},
	}, nil).Once()
	f.gw.On("GetCharge", mock.Anything, "ch_err").Return(nil, errors.New("timeout")).Once()
	f.repo.On("ConfirmPayment", mock.Anything, int64(1), (*string)(nil), fixedNow).
		Return(&models.Activation{Payment: paid, PremiumUntil: fixedNow.Add(30 * 24 * time.Hour)}, u, nil, nil).Once()
	f.rt.On("ToUser", mock.Anything, u.ID, mock.Anything).Return(nil).Once()
	f.events.On("Publish", mock.Anything, rabbitmq.RoutingPremiumActivated, mock.Anything).Return(nil).Once()

	n, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.repo.AssertExpectations(t)
	f.gw.AssertExpectations(t)
}

func TestPaymentService_Reconcile_WithoutGateway(t *testing.T) {
	f := newFixture(false)
	n, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	f.repo.AssertNotCalled(t, "ListPendingPayments", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_RunReconciler_StopsOnCancel(t *testing.T) {
	f := newFixture(true)
	f.repo.On("ListPendingPayments", mock.Anything, mock.Anything, mock.Anything).Return([]*models.Payment{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunReconciler(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
