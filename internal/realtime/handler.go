package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
)

// Authenticator проверяет access-токен и возвращает активного пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Handler поднимает websocket-соединение для аутентифицированного пользователя.
type Handler struct {
	log      *slog.Logger
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewHandler создаёт обработчик. allowedOrigin пустой разрешает любой Origin.
func NewHandler(log *slog.Logger, hub *Hub, auth Authenticator, allowedOrigin string) *Handler {
	return &Handler{
		log:  log,
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || strings.EqualFold(origin, allowedOrigin)
			},
		},
	}
}

// ServeHTTP godoc
// @Summary Поток realtime-событий
// @Description Websocket-поток подсказок: premium-status-updated, new-notification, new-tip, delete-tip, update-tip
// @Tags realtime
// @Param token query string false "Access token, если не передан заголовок Authorization"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {string} string "Unauthorized"
// @Router /ws [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "realtime.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		log.Info("websocket auth rejected", sl.Err(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", sl.Err(err))
		return
	}

	client := NewClient(user.ID, conn)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}
	clientLog := h.log.With(slog.String("user_id", user.ID))
	go client.writePump(clientLog)
	go client.readPump(h.hub, clientLog)
}
