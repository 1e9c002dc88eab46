// Package dashboard реализует HTTP-обработчики личного кабинета:
// сводку, калькулятор выплат, конвертер коэффициентов, банкролл и историю ставок.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/wisepicks/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wisepicks/internal/http/request"
	"github.com/magabrotheeeer/wisepicks/internal/http/response"
	"github.com/magabrotheeeer/wisepicks/internal/lib/payout"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	dashboardsvc "github.com/magabrotheeeer/wisepicks/internal/services/dashboard"
)

// Service бизнес-логика личного кабинета.
type Service interface {
	UserData(ctx context.Context, user *models.User) (*models.UserDashboard, error)
	Calculate(stake float64, value, format string) (payout.Result, error)
	Convert(value, format string, stake float64) (*dashboardsvc.Conversion, error)
	AddBankroll(ctx context.Context, user *models.User, balance float64, description string) (*models.BankrollEntry, error)
	AddBet(ctx context.Context, user *models.User, bet models.Bet) (*models.Bet, error)
}

// OddsValue коэффициент в виде строки. В JSON принимается и число (2.5, -110),
// и строка ("+150", "5/2").
type OddsValue string

// UnmarshalJSON принимает число или строку.
func (o *OddsValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = OddsValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*o = OddsValue(n.String())
	return nil
}

// CalculateRequest входные данные калькулятора.
type CalculateRequest struct {
	Stake float64   `json:"stake" validate:"gt=0"`
	Odds  OddsValue `json:"odds" validate:"required" swaggertype:"string" example:"+150"`
	Type  string    `json:"type" validate:"required,oneof=decimal american fractional"`
}

// CalculateResponse результат калькулятора. Суммы с двумя знаками после запятой.
type CalculateResponse struct {
	Stake       float64 `json:"stake"`
	Odds        string  `json:"odds"`
	Type        string  `json:"type"`
	Profit      string  `json:"profit" example:"75.00"`
	TotalReturn string  `json:"total_return" example:"125.00"`
}

// ConvertRequest входные данные конвертера. Stake необязателен, по умолчанию 100.
type ConvertRequest struct {
	Value  OddsValue `json:"value" validate:"required" swaggertype:"string" example:"5/2"`
	Format string    `json:"format" validate:"required,oneof=decimal american fractional"`
	Stake  float64   `json:"stake,omitempty" validate:"gte=0"`
}

// BankrollRequest новый баланс банкролла.
type BankrollRequest struct {
	Balance     float64 `json:"balance"`
	Description string  `json:"description" validate:"max=500"`
}

// BetRequest ставка для истории.
type BetRequest struct {
	Match     string  `json:"match" validate:"required,max=200"`
	Selection string  `json:"selection" validate:"required,max=200"`
	Odds      float64 `json:"odds" validate:"gt=1"`
	Stake     float64 `json:"stake" validate:"gt=0"`
	Result    string  `json:"result" validate:"omitempty,oneof=pending won lost"`
	Profit    float64 `json:"profit"`
}

// Handler обрабатывает запросы личного кабинета.
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

// UserData godoc
// @Summary Сводка личного кабинета
// @Description Профиль, 5 последних прогнозов, процент побед за 30 дней, банкролл и график баланса.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.UserDashboard}
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Router /dashboard/user-data [get]
func (h *Handler) UserData(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.UserData"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	data, err := h.service.UserData(r.Context(), user)
	if err != nil {
		log.Error("failed to build dashboard", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(data))
}

// Calculate godoc
// @Summary Калькулятор выплаты
// @Description profit = stake*d - stake, total_return = stake + profit, где d десятичный коэффициент.
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CalculateRequest true "Ставка и коэффициент"
// @Success 200 {object} response.Response{data=CalculateResponse}
// @Failure 400 {object} response.ErrorResponse "Некорректный коэффициент"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /dashboard/calculate [post]
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.Calculate"
	log := h.logger(r, op)

	var req CalculateRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	res, err := h.service.Calculate(req.Stake, string(req.Odds), req.Type)
	if err != nil {
		log.Info("calculation rejected", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(CalculateResponse{
		Stake:       req.Stake,
		Odds:        string(req.Odds),
		Type:        req.Type,
		Profit:      payout.Format2(res.Profit),
		TotalReturn: payout.Format2(res.TotalReturn),
	}))
}

// Convert godoc
// @Summary Конвертер коэффициентов
// @Description Переводит коэффициент во все форматы, считает подразумеваемую вероятность и справедливую выплату. Только для премиума.
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ConvertRequest true "Коэффициент и формат"
// @Success 200 {object} response.Response{data=dashboardsvc.Conversion}
// @Failure 400 {object} response.ErrorResponse "Некорректный коэффициент"
// @Failure 403 {object} response.ErrorResponse "Нужен премиум"
// @Router /dashboard/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.Convert"
	log := h.logger(r, op)

	var req ConvertRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	conv, err := h.service.Convert(string(req.Value), req.Format, req.Stake)
	if err != nil {
		log.Info("conversion rejected", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(conv))
}

// Bankroll godoc
// @Summary Обновление банкролла
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BankrollRequest true "Баланс"
// @Success 201 {object} response.Response{data=models.BankrollEntry}
// @Router /dashboard/bankroll [post]
func (h *Handler) Bankroll(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.Bankroll"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req BankrollRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	entry, err := h.service.AddBankroll(r.Context(), user, req.Balance, req.Description)
	if err != nil {
		log.Error("failed to update bankroll", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(entry))
}

// Bet godoc
// @Summary Запись ставки в историю
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BetRequest true "Ставка"
// @Success 201 {object} response.Response{data=models.Bet}
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /dashboard/bet [post]
func (h *Handler) Bet(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.Bet"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req BetRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	bet, err := h.service.AddBet(r.Context(), user, models.Bet{
		Match:     req.Match,
		Selection: req.Selection,
		Odds:      req.Odds,
		Stake:     req.Stake,
		Result:    req.Result,
		Profit:    req.Profit,
	})
	if err != nil {
		if code := response.RenderError(w, r, err); code >= http.StatusInternalServerError {
			log.Error("failed to add bet", sl.Err(err))
		}
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(bet))
}
