package scheduler

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

	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindPremiumExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSchedulerService_NotifyExpiring(t *testing.T) {
	until := fixedNow.Add(20 * time.Hour)
	alice := &models.User{ID: "u-1", Email: "alice@example.com", Nickname: "alice", PremiumUntil: &until}
	bob := &models.User{ID: "u-2", Email: "bob@example.com", Nickname: "bob", PremiumUntil: &until}
	from := fixedNow.Add(12 * time.Hour)
	to := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		setupMocks func(*MockRepository, *MockPublisher)
		wantSent   int
		wantErr    bool
	}{
		{
			name: "success - found expiring subscriptions",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindPremiumExpiringBetween", mock.Anything, from, to).Return([]*models.User{alice, bob}, nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingPremiumExpiring, models.PremiumExpiring{
					UserID: "u-1", Email: "alice@example.com", Nickname: "alice", PremiumUntil: until,
				}).Return(nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingPremiumExpiring, mock.Anything).Return(nil).Once()
			},
			wantSent: 2,
		},
		{
			name: "success - no expiring subscriptions",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindPremiumExpiringBetween", mock.Anything, from, to).Return([]*models.User{}, nil).Once()
			},
		},
		{
			name: "repository error",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindPremiumExpiringBetween", mock.Anything, from, to).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
		{
			name: "publish error is skipped",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindPremiumExpiringBetween", mock.Anything, from, to).Return([]*models.User{alice, bob}, nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingPremiumExpiring, mock.Anything).Return(errors.New("channel closed")).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingPremiumExpiring, mock.Anything).Return(nil).Once()
			},
			wantSent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			service := NewSchedulerService(repo, pub, newNoopLogger(), 12*time.Hour, 24*time.Hour)
			service.now = func() time.Time { return fixedNow }

			tt.setupMocks(repo, pub)

			sent, err := service.NotifyExpiring(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantSent, sent)
			}

			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_WindowNotNarrowerThanInterval(t *testing.T) {
	repo := new(MockRepository)
	service := NewSchedulerService(repo, new(MockPublisher), newNoopLogger(), 48*time.Hour, 24*time.Hour)
	service.now = func() time.Time { return fixedNow }
	repo.On("FindPremiumExpiringBetween", mock.Anything, fixedNow, fixedNow.Add(24*time.Hour)).Return([]*models.User{}, nil).Once()

	_, err := service.NotifyExpiring(context.Background())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSchedulerService_Defaults(t *testing.T) {
	service := NewSchedulerService(new(MockRepository), new(MockPublisher), newNoopLogger(), 0, 0)
	assert.Equal(t, 12*time.Hour, service.interval)
	assert.Equal(t, 24*time.Hour, service.window)
}

func TestSchedulerService_Run_StopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindPremiumExpiringBetween", mock.Anything, mock.Anything, mock.Anything).Return([]*models.User{}, nil)
	service := NewSchedulerService(repo, new(MockPublisher), newNoopLogger(), 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(done)
	}()
	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, len(repo.Calls), 2)
}
