// Package auth реализует HTTP-обработчики регистрации, входа, обновления
// токенов, выхода и работы с профилем.
package auth

import (
	"context"
	"errors"
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
	"github.com/magabrotheeeer/wisepicks/internal/services"
	authsvc "github.com/magabrotheeeer/wisepicks/internal/services/auth"
	"github.com/magabrotheeeer/wisepicks/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Register(ctx context.Context, email, nickname, password string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (*authsvc.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*authsvc.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID, nickname string) (*models.Profile, error)
}

// RegisterRequest входные данные регистрации.
type RegisterRequest struct {
	Nickname string `json:"nickname" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest учётные данные пользователя.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest refresh-токен для обновления или отзыва.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest изменяемые поля профиля.
type UpdateProfileRequest struct {
	Nickname string `json:"nickname" validate:"required,min=3,max=50"`
}

// Handler обрабатывает HTTP-запросы аутентификации.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Бизнес-логика аутентификации
	validate *validator.Validate // Валидатор для проверки входных данных
}

// New создает новый экземпляр Handler.
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

// Register godoc
// @Summary Регистрация пользователя
// @Description Создаёт пользователя с ролью user. Email и никнейм должны быть уникальны.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Данные пользователя"
// @Success 201 {object} response.Response{data=models.Profile}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email или никнейм заняты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Register"
	log := h.logger(r, op)

	var req RegisterRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	profile, err := h.service.Register(r.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			log.Info("email or nickname already taken")
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("email or nickname already taken"))
			return
		}
		log.Error("failed to register user", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user registered", slog.String("user_id", profile.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(profile))
}

// Login godoc
// @Summary Авторизация пользователя
// @Description Проверяет email и пароль. Возвращает access-токен на 1 час, refresh-токен на 7 дней и профиль.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=authsvc.Tokens}
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Пользователь заблокирован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"
	log := h.logger(r, op)

	var req LoginRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrBanned) {
			log.Info("login rejected", sl.Err(err))
		} else {
			log.Error("login failed", sl.Err(err))
		}
		response.RenderError(w, r, err)
		return
	}

	log.Info("login success", slog.String("user_id", tokens.User.ID))
	render.JSON(w, r, response.OKWithData(tokens))
}

// Refresh godoc
// @Summary Обновление токенов
// @Description Обменивает refresh-токен на новую пару. Использованный refresh-токен отзывается.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh-токен"
// @Success 200 {object} response.Response{data=authsvc.Tokens}
// @Failure 401 {object} response.ErrorResponse "Токен недействителен или отозван"
// @Failure 403 {object} response.ErrorResponse "Пользователь заблокирован"
// @Router /auth/refresh-token [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Refresh"
	log := h.logger(r, op)

	var req RefreshRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		log.Info("refresh rejected", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(tokens))
}

// Logout godoc
// @Summary Выход
// @Description Отзывает переданный refresh-токен до окончания его срока.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RefreshRequest true "Refresh-токен"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Logout"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req RefreshRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		log.Info("logout failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("user logged out", slog.String("user_id", user.ID))
	render.JSON(w, r, response.OK())
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Me"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	profile, err := h.service.Me(r.Context(), user.ID)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(profile))
}

// UpdateProfile godoc
// @Summary Изменение профиля
// @Description Меняет никнейм. Занятый никнейм даёт 409.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Новые данные"
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 409 {object} response.ErrorResponse "Никнейм занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/update-profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.UpdateProfile"
	log := h.logger(r, op)

	user, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !request.Bind(w, r, log, h.validate, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), user.ID, req.Nickname)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("nickname already taken"))
			return
		}
		log.Error("failed to update profile", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("profile updated", slog.String("user_id", user.ID))
	render.JSON(w, r, response.OKWithData(profile))
}
