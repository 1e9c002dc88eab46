// Package realtime доставляет клиентам по websocket события-подсказки
// (новый прогноз, уведомление, смена премиум-статуса). Доставка не гарантируется:
// клиент после подсказки перечитывает данные через HTTP API.
package realtime

import (
	"context"
	"log/slog"
)

const (
	sendBuffer     = 64
	dispatchBuffer = 256
)

type envelope struct {
	userID  string // пустой означает всем
	payload []byte
}

// Hub владеет картой подключённых клиентов. Все изменения карты и рассылка
// выполняются в одной горутине Run.
type Hub struct {
	log        *slog.Logger
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	dispatch   chan envelope
	done       chan struct{}
}

// NewHub создаёт хаб. Для работы нужно запустить Run.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		dispatch:   make(chan envelope, dispatchBuffer),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	const op = "realtime.Hub.Run"
	log := h.log.With(slog.String("op", op))
	log.Info("hub started")
	defer func() {
		for _, set := range h.clients {
			for c := range set {
				close(c.send)
			}
		}
		h.clients = map[string]map[*Client]struct{}{}
		close(h.done)
		log.Info("hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			set, ok := h.clients[c.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.UserID] = set
			}
			set[c] = struct{}{}
			log.Debug("client registered", slog.String("user_id", c.UserID), slog.Int("connections", len(set)))
		case c := <-h.unregister:
			set, ok := h.clients[c.UserID]
			if !ok {
				continue
			}
			if _, ok = set[c]; !ok {
				continue
			}
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(h.clients, c.UserID)
			}
			log.Debug("client unregistered", slog.String("user_id", c.UserID))
		case env := <-h.dispatch:
			if env.userID != "" {
				h.deliver(h.clients[env.userID], env.payload)
				continue
			}
			for _, set := range h.clients {
				h.deliver(set, env.payload)
			}
		}
	}
}

func (h *Hub) deliver(set map[*Client]struct{}, payload []byte) {
	for c := range set {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("client send buffer full, event dropped", slog.String("user_id", c.UserID))
		}
	}
}

// Register добавляет клиента. Возвращает false, если хаб уже остановлен.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister удаляет клиента и закрывает его канал отправки.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendToUser ставит сообщение в очередь для всех соединений пользователя.
// При переполненной очереди сообщение отбрасывается.
func (h *Hub) SendToUser(userID string, payload []byte) bool {
	if userID == "" {
		return false
	}
	return h.enqueue(envelope{userID: userID, payload: payload})
}

// Broadcast ставит сообщение в очередь для всех подключённых клиентов.
func (h *Hub) Broadcast(payload []byte) bool {
	return h.enqueue(envelope{payload: payload})
}

func (h *Hub) enqueue(env envelope) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.dispatch <- env:
		return true
	default:
		h.log.Warn("hub dispatch queue full, event dropped")
		return false
	}
}
