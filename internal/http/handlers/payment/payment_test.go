package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/wisepicks/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/services"
	paymentsvc "github.com/magabrotheeeer/wisepicks/internal/services/payment"
	"github.com/magabrotheeeer/wisepicks/internal/storage/repository"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Checkout(ctx context.Context, user *models.User, plan string) (*paymentsvc.Checkout, error) {
	args := m.Called(ctx, user, plan)
	c, _ := args.Get(0).(*paymentsvc.Checkout)
	return c, args.Error(1)
}

func (m *ServiceMock) Status(ctx context.Context, viewer *models.User, id int64) (*models.Payment, error) {
	args := m.Called(ctx, viewer, id)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *ServiceMock) Confirm(ctx context.Context, actor *models.User, id int64) (*models.Activation, error) {
	args := m.Called(ctx, actor, id)
	a, _ := args.Get(0).(*models.Activation)
	return a, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newRequest(method, body string, user *models.User, id string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	r := httptest.NewRequest(method, "/payment", rd)
	ctx := r.Context()
	if user != nil {
		ctx = middlewarectx.WithUser(ctx, user)
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

var owner = &models.User{ID: "u-1", Role: models.RoleUser}

func TestHandler_Checkout(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(*ServiceMock)
		wantStatus int
	}{
		{
			name: "monthly",
			body: `{"plan":"monthly"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Checkout", mock.Anything, owner, "monthly").Return(&paymentsvc.Checkout{
					PaymentID:  1,
					ChargeID:   "payment_x",
					Amount:     "29.99",
					Currency:   "USD",
					Plan:       "monthly",
					PaymentURL: "http://localhost:3000/payment/manual/1",
					ExpiresAt:  time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
				}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown plan",
			body:       `{"plan":"weekly"}`,
			setupMock:  func(*ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "gateway failure",
			body: `{"plan":"yearly"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Checkout", mock.Anything, owner, "yearly").Return(nil, errors.New("gateway timeout")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)
			h := New(newNoopLogger(), svc)

			rec := httptest.NewRecorder()
			h.Checkout(rec, newRequest(http.MethodPost, tt.body, owner, ""))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusCreated {
				assert.Contains(t, rec.Body.String(), `"amount":"29.99"`)
				assert.Contains(t, rec.Body.String(), `"payment_url":"http://localhost:3000/payment/manual/1"`)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Status(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Status", mock.Anything, owner, int64(1)).Return(&models.Payment{ID: 1, Status: models.PaymentPending}, nil).Once()
	svc.On("Status", mock.Anything, owner, int64(2)).Return(nil, services.ErrForbidden).Once()
	svc.On("Status", mock.Anything, owner, int64(3)).Return(nil, repository.ErrNotFound).Once()
	h := New(newNoopLogger(), svc)

	for id, want := range map[string]int{
		"1": http.StatusOK,
		"2": http.StatusForbidden,
		"3": http.StatusNotFound,
		"0": http.StatusBadRequest,
	} {
		rec := httptest.NewRecorder()
		h.Status(rec, newRequest(http.MethodGet, "", owner, id))
		assert.Equal(t, want, rec.Code, "id %s", id)
	}
	svc.AssertExpectations(t)
}

func TestHandler_Confirm(t *testing.T) {
	until := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	t.Run("idempotent second call", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Confirm", mock.Anything, owner, int64(4)).Return(&models.Activation{
			Payment:          &models.Payment{ID: 4, Status: models.PaymentCompleted},
			PremiumUntil:     until,
			AlreadyConfirmed: true,
		}, nil).Once()
		h := New(newNoopLogger(), svc)

		rec := httptest.NewRecorder()
		h.Confirm(rec, newRequest(http.MethodPost, "", owner, "4"))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data models.Activation `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Data.AlreadyConfirmed)
		assert.True(t, resp.Data.PremiumUntil.Equal(until))
	})

	t.Run("not paid in gateway", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Confirm", mock.Anything, owner, int64(5)).Return(nil, services.ErrPaymentNotCompleted).Once()
		h := New(newNoopLogger(), svc)

		rec := httptest.NewRecorder()
		h.Confirm(rec, newRequest(http.MethodPost, "", owner, "5"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("manual payment needs admin", func(t *testing.T) {
		svc := new(ServiceMock)
		err := fmt.Errorf("payment.Confirm: %w: manual payments are confirmed by an admin", services.ErrForbidden)
		svc.On("Confirm", mock.Anything, owner, int64(6)).Return(nil, err).Once()
		h := New(newNoopLogger(), svc)

		rec := httptest.NewRecorder()
		h.Confirm(rec, newRequest(http.MethodPost, "", owner, "6"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "forbidden")
	})

	t.Run("expired checkout", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Confirm", mock.Anything, owner, int64(7)).Return(nil, services.ErrPaymentExpired).Once()
		h := New(newNoopLogger(), svc)

		rec := httptest.NewRecorder()
		h.Confirm(rec, newRequest(http.MethodPost, "", owner, "7"))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "payment expired")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := New(newNoopLogger(), new(ServiceMock))
		rec := httptest.NewRecorder()
		h.Confirm(rec, newRequest(http.MethodPost, "", nil, "5"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
