package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/wisepicks/internal/lib/password"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
	"github.com/magabrotheeeer/wisepicks/internal/services"
	"github.com/magabrotheeeer/wisepicks/internal/storage/repository"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockRepository) CountUsers(ctx context.Context, now time.Time) (int, int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockRepository) CountPendingTips(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) TipStatsSince(ctx context.Context, since time.Time) (models.TipStats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(models.TipStats), args.Error(1)
}

func (m *MockRepository) RecentActivity(ctx context.Context, limit int) ([]*models.Activity, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Activity), args.Error(1)
}

func (m *MockRepository) SetBanned(ctx context.Context, userID string, banned bool, actorID string) (*models.User, error) {
	args := m.Called(ctx, userID, banned, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GrantPremium(ctx context.Context, userID string, until time.Time, actorID string) (*models.User, *models.Notification, error) {
	args := m.Called(ctx, userID, until, actorID)
	var (
		u *models.User
		n *models.Notification
	)
	if v := args.Get(0); v != nil {
		u = v.(*models.User)
	}
	if v := args.Get(1); v != nil {
		n = v.(*models.Notification)
	}
	return u, n, args.Error(2)
}

func (m *MockRepository) RemovePremium(ctx context.Context, userID, actorID string) (*models.User, error) {
	args := m.Called(ctx, userID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) ResetPassword(ctx context.Context, userID, passwordHash, actorID string) error {
	return m.Called(ctx, userID, passwordHash, actorID).Error(0)
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

var (
	fixedNow  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	adminUser = &models.User{ID: "adm", Role: models.RoleAdmin}
)

func newService() (*AdminService, *MockRepository, *MockPublisher, *MockEvents) {
	repo := new(MockRepository)
	rt := new(MockPublisher)
	events := new(MockEvents)
	svc := New(repo, rt, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, rt, events
}

func TestAdminService_ListUsers(t *testing.T) {
	svc, repo, _, _ := newService()
	future := fixedNow.Add(time.Hour)
	past := fixedNow.Add(-time.Hour)
	repo.On("ListUsers", mock.Anything, defaultUsersLimit, 0).Return([]*models.User{
		{ID: "a", PremiumUntil: &future},
		{ID: "b", PremiumUntil: &past},
		{ID: "c"},
	}, nil).Once()

	got, err := svc.ListUsers(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].IsPremium)
	assert.False(t, got[1].IsPremium)
	assert.False(t, got[2].IsPremium)
}

func TestAdminService_Stats(t *testing.T) {
	svc, repo, _, _ := newService()
	activity := []*models.Activity{{ID: 1, Action: models.ActionBanUser}}
	repo.On("CountUsers", mock.Anything, fixedNow).Return(10, 3, nil)
	repo.On("CountPendingTips", mock.Anything).Return(4, nil)
	repo.On("TipStatsSince", mock.Anything, fixedNow.Add(-statsWindow)).Return(models.TipStats{Settled: 8, Won: 5}, nil)
	repo.On("RecentActivity", mock.Anything, recentActivityLimit).Return(activity, nil)

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.AdminStats{
		TotalUsers:     10,
		PremiumUsers:   3,
		ActiveTips:     4,
		WinRate:        "62.50",
		RecentActivity: activity,
	}, got)
}

func TestAdminService_Stats_Error(t *testing.T) {
	svc, repo, _, _ := newService()
	boom := errors.New("db down")
	repo.On("CountUsers", mock.Anything, fixedNow).Return(0, 0, boom)

	_, err := svc.Stats(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestAdminService_BanUnban(t *testing.T) {
	svc, repo, _, _ := newService()
	repo.On("SetBanned", mock.Anything, "u-1", true, "adm").Return(&models.User{ID: "u-1", IsBanned: true}, nil).Once()
	repo.On("SetBanned", mock.Anything, "u-1", false, "adm").Return(&models.User{ID: "u-1"}, nil).Once()
	repo.On("SetBanned", mock.Anything, "ghost", true, "adm").Return(nil, repository.ErrNotFound).Once()

	u, err := svc.Ban(context.Background(), adminUser, "u-1")
	require.NoError(t, err)
	assert.True(t, u.IsBanned)

	u, err = svc.Unban(context.Background(), adminUser, "u-1")
	require.NoError(t, err)
	assert.False(t, u.IsBanned)

	_, err = svc.Ban(context.Background(), adminUser, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Ban(context.Background(), adminUser, "adm")
	assert.ErrorIs(t, err, services.ErrForbidden)
	repo.AssertExpectations(t)
}

func TestAdminService_GrantPremium(t *testing.T) {
	svc, repo, rt, events := newService()
	until := fixedNow.Add(DefaultPremiumDays * 24 * time.Hour)
	notif := &models.Notification{ID: 9, UserID: "u-1"}
	repo.On("GrantPremium", mock.Anything, "u-1", until, "adm").
		Return(&models.User{ID: "u-1", Email: "u@example.com", Nickname: "u", PremiumUntil: &until}, notif, nil).Once()
	rt.On("ToUser", mock.Anything, "u-1", mock.MatchedBy(func(e models.RealtimeEvent) bool {
		return e.Type == models.EventPremiumStatusUpdated
	})).Return(errors.New("redis down")).Once()
	rt.On("ToUser", mock.Anything, "u-1", models.RealtimeEvent{Type: models.EventNewNotification, Payload: notif}).Return(nil).Once()
	events.On("Publish", mock.Anything, rabbitmq.RoutingPremiumActivated, mock.MatchedBy(func(m models.PremiumActivated) bool {
		return m.Email == "u@example.com" && m.PremiumUntil.Equal(until)
	})).Return(nil).Once()

	u, err := svc.GrantPremium(context.Background(), adminUser, "u-1", 0)
	require.NoError(t, err)
	assert.Equal(t, until, *u.PremiumUntil)
	rt.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestAdminService_GrantPremium_CustomDuration(t *testing.T) {
	svc, repo, rt, events := newService()
	until := fixedNow.Add(7 * 24 * time.Hour)
	repo.On("GrantPremium", mock.Anything, "u-1", until, "adm").
		Return(&models.User{ID: "u-1", PremiumUntil: &until}, nil, nil).Once()
	rt.On("ToUser", mock.Anything, "u-1", mock.Anything).Return(nil).Once()
	events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.GrantPremium(context.Background(), adminUser, "u-1", 7)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestAdminService_RemovePremium(t *testing.T) {
	svc, repo, rt, _ := newService()
	repo.On("RemovePremium", mock.Anything, "u-1", "adm").Return(&models.User{ID: "u-1"}, nil).Once()
	rt.On("ToUser", mock.Anything, "u-1", mock.MatchedBy(func(e models.RealtimeEvent) bool {
		return e.Type == models.EventPremiumStatusUpdated
	})).Return(nil).Once()

	u, err := svc.RemovePremium(context.Background(), adminUser, "u-1")
	require.NoError(t, err)
	assert.Nil(t, u.PremiumUntil)
	rt.AssertExpectations(t)
}

func TestAdminService_ResetPassword(t *testing.T) {
	svc, repo, _, _ := newService()
	var stored string
	repo.On("ResetPassword", mock.Anything, "u-1", mock.AnythingOfType("string"), "adm").
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil).Once()

	require.NoError(t, svc.ResetPassword(context.Background(), adminUser, "u-1", "secret1"))
	assert.NoError(t, password.CompareHash(stored, "secret1"))

	err := svc.ResetPassword(context.Background(), adminUser, "u-1", "short")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
	repo.AssertNumberOfCalls(t, "ResetPassword", 1)
}
