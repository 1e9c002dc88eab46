// Package models содержит доменные модели платформы: пользователей, прогнозы,
// платежи, уведомления, банкролл и ставки, а также полезные нагрузки событий.
// Структуры используются в бизнес‑логике, хранилище и HTTP‑слое.
package models

import "time"

const (
	// RoleUser роль обычного пользователя.
	RoleUser = "user"
	// RoleAdmin роль администратора.
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           string     `json:"id"`            // Уникальный идентификатор пользователя
	Email        string     `json:"email"`         // Электронная почта
	Nickname     string     `json:"nickname"`      // Никнейм (уникальный)
	PasswordHash string     `json:"-"`             // Хэш пароля пользователя
	Role         string     `json:"role"`          // Роль пользователя, admin или user
	PremiumUntil *time.Time `json:"premium_until"` // Дата окончания премиум‑доступа
	IsBanned     bool       `json:"is_banned"`     // Признак блокировки
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Profile публичное представление пользователя в ответах API.
type Profile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	Role         string     `json:"role"`
	PremiumUntil *time.Time `json:"premium_until"`
	IsPremium    bool       `json:"is_premium"`
	CreatedAt    time.Time  `json:"created_at"`
}
