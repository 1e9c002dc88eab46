package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
)

const (
	channelPrefix    = "realtime:"
	userChannel      = channelPrefix + "user:"
	broadcastChannel = channelPrefix + "broadcast"
)

// Publisher публикует события-подсказки для клиентов.
type Publisher interface {
	ToUser(ctx context.Context, userID string, event models.RealtimeEvent) error
	Broadcast(ctx context.Context, event models.RealtimeEvent) error
}

// PubSub канал публикации между экземплярами сервиса.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, pattern string, handler func(channel string, payload []byte)) error
}

// RedisPublisher публикует события в redis pub/sub, откуда их забирает Bridge
// каждого экземпляра API.
type RedisPublisher struct {
	ps PubSub
}

// NewRedisPublisher создаёт публикатор поверх ps.
func NewRedisPublisher(ps PubSub) *RedisPublisher {
	return &RedisPublisher{ps: ps}
}

// ToUser публикует событие в персональный канал пользователя.
func (p *RedisPublisher) ToUser(ctx context.Context, userID string, event models.RealtimeEvent) error {
	const op = "realtime.ToUser"
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = p.ps.Publish(ctx, userChannel+userID, payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Broadcast публикует событие для всех подключённых клиентов.
func (p *RedisPublisher) Broadcast(ctx context.Context, event models.RealtimeEvent) error {
	const op = "realtime.Broadcast"
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = p.ps.Publish(ctx, broadcastChannel, payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Bridge пересылает сообщения из redis pub/sub в локальный хаб.
type Bridge struct {
	log *slog.Logger
	ps  PubSub
	hub *Hub
}

// NewBridge создаёт мост.
func NewBridge(log *slog.Logger, ps PubSub, hub *Hub) *Bridge {
	return &Bridge{log: log, ps: ps, hub: hub}
}

// Run подписывается на realtime-каналы и блокируется до отмены ctx.
func (b *Bridge) Run(ctx context.Context) error {
	const op = "realtime.Bridge.Run"
	err := b.ps.Subscribe(ctx, channelPrefix+"*", b.route)
	if err != nil {
		b.log.Error("realtime bridge stopped", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (b *Bridge) route(channel string, payload []byte) {
	switch {
	case channel == broadcastChannel:
		b.hub.Broadcast(payload)
	case strings.HasPrefix(channel, userChannel):
		b.hub.SendToUser(strings.TrimPrefix(channel, userChannel), payload)
	default:
		b.log.Debug("unknown realtime channel", slog.String("channel", channel))
	}
}
