// Package admin реализует HTTP-обработчики административной панели.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/wisepicks/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wisepicks/internal/http/request"
	"github.com/magabrotheeeer/wisepicks/internal/http/response"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	adminsvc "github.com/magabrotheeeer/wisepicks/internal/services/admin"
)

// Service бизнес-логика администратора.
type Service interface {
	ListUsers(ctx context.Context, limit, offset int) ([]adminsvc.UserView, error)
	Stats(ctx context.Context) (*models.AdminStats, error)
	Ban(ctx context.Context, actor *models.User, userID string) (*models.User, error)
	Unban(ctx context.Context, actor *models.User, userID string) (*models.User, error)
	GrantPremium(ctx context.Context, actor *models.User, userID string, days int) (*models.User, error)
	RemovePremium(ctx context.Context, actor *models.User, userID string) (*models.User, error)
	ResetPassword(ctx context.Context, actor *models.User, userID, newPassword string) error
}

// PremiumRequest срок премиума в днях. Пустое тело или 0 означает 30 дней.
type PremiumRequest struct {
	Duration int `json:"duration" validate:"gte=0,max=3650"`
}

// ResetPasswordRequest новый пароль пользователя.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// Handler обрабатывает запросы администратора.
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

// target достаёт администратора из контекста и id пользователя из пути.
func (h *Handler) target(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*models.User, string, bool) {
	actor, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return nil, "", false
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		log.Warn("invalid user id", slog.String("id", id))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return nil, "", false
	}
	return actor, id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	if code := response.RenderError(w, r, err); code >= http.StatusInternalServerError {
		log.Error(msg, sl.Err(err))
		return
	}
	log.Info(msg, sl.Err(err))
}

// Users godoc
// @Summary Список пользователей
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Размер страницы, по умолчанию 100"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]adminsvc.UserView}
// @Failure 403 {object} response.ErrorResponse "Нужны права администратора"
// @Router /admin/users [get]
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Users"
	log := h.logger(r, op)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, log, "failed to list users", err)
		return
	}
	render.JSON(w, r, response.OKWithData(users))
}

// Dashboard godoc
// @Summary Сводка администратора
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.AdminStats}
// @Router /admin/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Dashboard"
	log := h.logger(r, op)

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, log, "failed to build admin stats", err)
		return
	}
	render.JSON(w, r, response.OKWithData(stats))
}

// Ban godoc
// @Summary Блокировка пользователя
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 403 {object} response.ErrorResponse "Нельзя заблокировать себя"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{id}/ban [post]
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Ban"
	log := h.logger(r, op)

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	u, err := h.service.Ban(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, log, "failed to ban user", err)
		return
	}
	render.JSON(w, r, response.OKWithData(u))
}

// Unban godoc
// @Summary Разблокировка пользователя
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{id}/unban [post]
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Unban"
	log := h.logger(r, op)

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	u, err := h.service.Unban(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, log, "failed to unban user", err)
		return
	}
	render.JSON(w, r, response.OKWithData(u))
}

// Premium godoc
// @Summary Выдача премиума
// @Description premium_until = now + duration дней (по умолчанию 30). Пользователь получает уведомление.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Param request body PremiumRequest false "Срок в днях"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{id}/premium [post]
func (h *Handler) Premium(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Premium"
	log := h.logger(r, op)

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	var req PremiumRequest
	if !request.BindOptional(w, r, log, h.validate, &req) {
		return
	}
	u, err := h.service.GrantPremium(r.Context(), actor, id, req.Duration)
	if err != nil {
		h.fail(w, r, log, "failed to grant premium", err)
		return
	}
	render.JSON(w, r, response.OKWithData(u))
}

// RemovePremium godoc
// @Summary Отзыв премиума
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{id}/remove-premium [post]
func (h *Handler) RemovePremium(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.RemovePremium"
	log := h.logger(r, op)

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	u, err := h.service.RemovePremium(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, log, "failed to remove premium", err)
		return
	}
	render.JSON(w, r, response.OKWithData(u))
}

// ResetPassword godoc
// @Summary Сброс пароля
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Param request body ResetPasswordRequest true "Новый пароль"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/users/{id}/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.ResetPassword"
	log := h.logger(r, op)

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	var req ResetPasswordRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), actor, id, req.NewPassword); err != nil {
		h.fail(w, r, log, "failed to reset password", err)
		return
	}
	render.JSON(w, r, response.OK())
}
