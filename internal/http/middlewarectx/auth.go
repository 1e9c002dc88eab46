// Package middlewarectx содержит HTTP middleware: аутентификацию по JWT с
// загрузкой пользователя из базы, проверки ролей и премиум-доступа,
// ограничение частоты запросов, очистку входных строк и метрики.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/wisepicks/internal/access"
	"github.com/magabrotheeeer/wisepicks/internal/http/response"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/services"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User ключ для текущего пользователя в контексте
	User Key = "user"
	// Token ключ для исходного access-токена
	Token Key = "token"
)

// Authenticator проверяет access-токен и возвращает актуального пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, User, u)
}

// UserFrom достаёт пользователя, положенного JWTMiddleware.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(User).(*models.User)
	return u, ok && u != nil
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Пользователь и его премиум-статус читаются из базы на каждый запрос,
// поэтому блокировка действует сразу, даже при живом токене.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := BearerToken(r)
			if !ok {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			user, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				switch {
				case errors.Is(err, services.ErrBanned):
					log.Warn("banned user rejected", sl.Err(err))
				case errors.Is(err, services.ErrInvalidToken):
					log.Warn("invalid or expired token", sl.Err(err))
				default:
					log.Error("failed to authenticate", sl.Err(err))
				}
				response.RenderError(w, r, err)
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = context.WithValue(ctx, Token, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly пропускает только администраторов.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if !u.IsAdmin() {
				log.Warn("admin access denied",
					slog.String("user_id", u.ID),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePremium пропускает пользователей с активным премиумом и администраторов.
func RequirePremium(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if !access.CanViewPremium(u, time.Now()) {
				log.Info("premium feature denied", slog.String("user_id", u.ID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("premium subscription required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser достаёт пользователя из контекста или отвечает 401.
func RequireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, ok := UserFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return nil, false
	}
	return u, true
}
