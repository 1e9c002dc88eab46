// Package payment реализует HTTP-обработчики оплаты премиум-подписки.
package payment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/wisepicks/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wisepicks/internal/http/request"
	"github.com/magabrotheeeer/wisepicks/internal/http/response"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	paymentsvc "github.com/magabrotheeeer/wisepicks/internal/services/payment"
)

// Service бизнес-логика платежей.
type Service interface {
	Checkout(ctx context.Context, user *models.User, plan string) (*paymentsvc.Checkout, error)
	Status(ctx context.Context, viewer *models.User, id int64) (*models.Payment, error)
	Confirm(ctx context.Context, actor *models.User, id int64) (*models.Activation, error)
}

// CheckoutRequest выбранный тарифный план.
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly quarterly yearly"`
}

// Handler обрабатывает запросы оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Checkout godoc
// @Summary Создание платежа
// @Description Создаёт ожидающий платёж по плану и возвращает ссылку на оплату. Ссылка действует 1 час.
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckoutRequest true "План: monthly, quarterly или yearly"
// @Success 201 {object} response.Response{data=paymentsvc.Checkout}
// @Failure 400 {object} response.ErrorResponse "Неизвестный план"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payment/checkout [post]
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.Checkout"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	checkout, err := h.service.Checkout(r.Context(), user, req.Plan)
	if err != nil {
		log.Error("failed to create checkout", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("checkout created",
		slog.String("user_id", user.ID),
		slog.Int64("payment_id", checkout.PaymentID),
		slog.String("plan", checkout.Plan),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(checkout))
}

// Status godoc
// @Summary Статус платежа
// @Tags Payment
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID платежа"
// @Success 200 {object} response.Response{data=models.Payment}
// @Failure 403 {object} response.ErrorResponse "Чужой платёж"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Router /payment/status/{id} [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.Status"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}

	p, err := h.service.Status(r.Context(), user, id)
	if err != nil {
		if code := response.RenderError(w, r, err); code >= http.StatusInternalServerError {
			log.Error("failed to get payment", sl.Err(err))
		}
		return
	}
	render.JSON(w, r, response.OKWithData(p))
}

// Confirm godoc
// @Summary Подтверждение платежа
// @Description Атомарно отмечает платёж оплаченным и включает премиум. Повторный вызов возвращает already_confirmed=true.
// @Tags Payment
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID платежа"
// @Success 200 {object} response.Response{data=models.Activation}
// @Failure 403 {object} response.ErrorResponse "Чужой платёж или ручной платёж без администратора"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 409 {object} response.ErrorResponse "Платёж ещё не оплачен в шлюзе или счёт истёк"
// @Router /payment/confirm/{id} [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.Confirm"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}

	activation, err := h.service.Confirm(r.Context(), user, id)
	if err != nil {
		if code := response.RenderError(w, r, err); code >= http.StatusInternalServerError {
			log.Error("failed to confirm payment", sl.Err(err))
		} else {
			log.Info("payment confirm rejected", sl.Err(err))
		}
		return
	}
	log.Info("payment confirmed",
		slog.Int64("payment_id", id),
		slog.Bool("already_confirmed", activation.AlreadyConfirmed),
	)
	render.JSON(w, r, response.OKWithData(activation))
}
