package models

import "time"

// Notification уведомление пользователя. Таблица notifications является
// основным источником истины, realtime‑пуш лишь подсказывает клиенту перечитать её.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// PremiumActivatedNotice заголовок и текст уведомления об активации премиума.
func PremiumActivatedNotice(until time.Time) (title, message string) {
	return "Premium Subscription Activated",
		"Your premium subscription has been activated until " + until.UTC().Format("2006-01-02")
}

// NewTipNotice заголовок и текст уведомления о новом прогнозе.
func NewTipNotice(match string) (title, message string) {
	return "New Betting Tip", "New tip added for " + match
}
