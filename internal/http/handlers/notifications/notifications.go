// Package notifications реализует HTTP-обработчики уведомлений пользователя.
package notifications

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/wisepicks/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wisepicks/internal/http/request"
	"github.com/magabrotheeeer/wisepicks/internal/http/response"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
)

// Service бизнес-логика уведомлений.
type Service interface {
	List(ctx context.Context, user *models.User) ([]*models.Notification, error)
	MarkRead(ctx context.Context, user *models.User, id int64) (*models.Notification, error)
	MarkAllRead(ctx context.Context, user *models.User) (int64, error)
}

// MarkAllResponse количество отмеченных уведомлений.
type MarkAllResponse struct {
	Updated int64 `json:"updated"`
}

// Handler обрабатывает запросы уведомлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List godoc
// @Summary Уведомления пользователя
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.Notification}
// @Router /notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.List"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	items, err := h.service.List(r.Context(), user)
	if err != nil {
		log.Error("failed to list notifications", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(items))
}

// MarkRead godoc
// @Summary Отметить уведомление прочитанным
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID уведомления"
// @Success 200 {object} response.Response{data=models.Notification}
// @Failure 404 {object} response.ErrorResponse "Уведомление не найдено"
// @Router /notifications/{id}/read [patch]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.MarkRead"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}
	n, err := h.service.MarkRead(r.Context(), user, id)
	if err != nil {
		if code := response.RenderError(w, r, err); code >= http.StatusInternalServerError {
			log.Error("failed to mark notification", sl.Err(err))
		}
		return
	}
	render.JSON(w, r, response.OKWithData(n))
}

// MarkAllRead godoc
// @Summary Отметить все уведомления прочитанными
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=MarkAllResponse}
// @Router /notifications/read-all [patch]
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.MarkAllRead"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(r.Context(), user)
	if err != nil {
		log.Error("failed to mark notifications", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Debug("notifications marked read", slog.Int64("updated", n))
	render.JSON(w, r, response.OKWithData(MarkAllResponse{Updated: n}))
}
