package models

import "time"

// BankrollEntry запись о текущем балансе банкролла пользователя.
type BankrollEntry struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Balance     float64   `json:"balance"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Bet ставка пользователя из истории.
type Bet struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Match     string    `json:"match"`
	Selection string    `json:"selection"`
	Odds      float64   `json:"odds"`
	Stake     float64   `json:"stake"`
	Result    string    `json:"result"`
	Profit    float64   `json:"profit"`
	CreatedAt time.Time `json:"created_at"`
}

// BalancePoint точка графика накопленного баланса по ставкам.
type BalancePoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}
