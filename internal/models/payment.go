package models

import "time"

const (
	// PaymentPending платёж создан и ожидает подтверждения.
	PaymentPending = "pending"
	// PaymentCompleted платёж подтверждён, премиум активирован.
	PaymentCompleted = "completed"
)

// Payment платёж за премиум‑подписку.
type Payment struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	ChargeID    string     `json:"charge_id"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Plan        string     `json:"plan"`
	Duration    int        `json:"duration"`
	Status      string     `json:"status"`
	PaymentURL  string     `json:"payment_url"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Plan тарифный план премиум‑подписки.
type Plan struct {
	Name        string
	Amount      float64
	Currency    string
	Duration    int // дней
	Description string
}

// Plans доступные тарифные планы.
var Plans = map[string]Plan{
	"monthly": {
		Name: "monthly", Amount: 29.99, Currency: "USD", Duration: 30,
		Description: "WisePicks Monthly Premium Subscription",
	},
	"quarterly": {
		Name: "quarterly", Amount: 79.99, Currency: "USD", Duration: 90,
		Description: "WisePicks Quarterly Premium Subscription",
	},
	"yearly": {
		Name: "yearly", Amount: 299.99, Currency: "USD", Duration: 365,
		Description: "WisePicks Yearly Premium Subscription",
	},
}

// Activation результат активации премиума по платежу.
type Activation struct {
	Payment          *Payment  `json:"payment"`
	PremiumUntil     time.Time `json:"premium_until"`
	AlreadyConfirmed bool      `json:"already_confirmed"`
}
