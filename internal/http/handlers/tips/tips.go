// Package tips реализует HTTP-обработчики ленты прогнозов.
package tips

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
)

// Service бизнес-логика прогнозов.
type Service interface {
	List(ctx context.Context, viewer *models.User) ([]*models.Tip, error)
	Create(ctx context.Context, actor *models.User, in models.NewTip) (*models.Tip, error)
	Delete(ctx context.Context, id int64) error
	SetResult(ctx context.Context, id int64, result string) (*models.Tip, error)
}

// ResultRequest новый результат прогноза.
type ResultRequest struct {
	Result string `json:"result" validate:"required,oneof=pending won lost"`
}

// Handler обрабатывает запросы к прогнозам.
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

// List godoc
// @Summary Лента прогнозов
// @Description Все прогнозы от новых к старым. Премиум-прогнозы без доступа приходят с locked=true и без prediction, odds, stake.
// @Tags Tips
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.Tip}
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Router /tips [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tips.List"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	tips, err := h.service.List(r.Context(), user)
	if err != nil {
		log.Error("failed to list tips", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(tips))
}

// Create godoc
// @Summary Новый прогноз
// @Description Создаёт прогноз и уведомляет всех активных пользователей.
// @Tags Tips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.NewTip true "Прогноз"
// @Success 201 {object} response.Response{data=models.Tip}
// @Failure 403 {object} response.ErrorResponse "Нужны права администратора"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /tips [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tips.Create"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.NewTip
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	tip, err := h.service.Create(r.Context(), user, req)
	if err != nil {
		log.Error("failed to create tip", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("tip created", slog.Int64("tip_id", tip.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(tip))
}

// Delete godoc
// @Summary Удаление прогноза
// @Tags Tips
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID прогноза"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Прогноз не найден"
// @Router /tips/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tips.Delete"
	log := h.logger(r, op)

	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if code := response.RenderError(w, r, err); code >= http.StatusInternalServerError {
			log.Error("failed to delete tip", sl.Err(err))
		}
		return
	}
	log.Info("tip deleted", slog.Int64("tip_id", id))
	render.JSON(w, r, response.OK())
}

// SetResult godoc
// @Summary Результат прогноза
// @Tags Tips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID прогноза"
// @Param request body ResultRequest true "pending, won или lost"
// @Success 200 {object} response.Response{data=models.Tip}
// @Failure 404 {object} response.ErrorResponse "Прогноз не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /tips/{id}/result [patch]
func (h *Handler) SetResult(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tips.SetResult"
	log := h.logger(r, op)

	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}
	var req ResultRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	tip, err := h.service.SetResult(r.Context(), id, req.Result)
	if err != nil {
		if code := response.RenderError(w, r, err); code >= http.StatusInternalServerError {
			log.Error("failed to update tip result", sl.Err(err))
		}
		return
	}
	render.JSON(w, r, response.OKWithData(tip))
}
