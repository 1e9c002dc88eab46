package models

import "time"

// Типы realtime‑событий.
const (
	EventPremiumStatusUpdated = "premium-status-updated"
	EventNewNotification      = "new-notification"
	EventNewTip               = "new-tip"
	EventDeleteTip            = "delete-tip"
	EventUpdateTip            = "update-tip"
)

// RealtimeEvent событие, отправляемое клиенту по websocket.
type RealtimeEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// PremiumActivated сообщение в очередь о включении премиума.
type PremiumActivated struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	Plan         string    `json:"plan"`
	PremiumUntil time.Time `json:"premium_until"`
}

// PremiumExpiring сообщение в очередь о скором окончании премиума.
type PremiumExpiring struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	PremiumUntil time.Time `json:"premium_until"`
}
