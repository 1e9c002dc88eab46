package models

import "time"

const (
	// TipPending прогноз ещё не рассчитан.
	TipPending = "pending"
	// TipWon прогноз зашёл.
	TipWon = "won"
	// TipLost прогноз не зашёл.
	TipLost = "lost"
)

// Tip прогноз на матч. Для закрытых премиум‑прогнозов поля Prediction, Odds и Stake
// обнуляются, а Locked выставляется в true.
type Tip struct {
	ID         int64      `json:"id"`
	Match      string     `json:"match"`
	League     string     `json:"league,omitempty"`
	Sport      string     `json:"sport"`
	Prediction string     `json:"prediction,omitempty"`
	Odds       *float64   `json:"odds,omitempty"`
	Stake      *float64   `json:"stake,omitempty"`
	IsPremium  bool       `json:"is_premium"`
	Locked     bool       `json:"locked,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	Result     string     `json:"result"`
	CreatedBy  *string    `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewTip входные данные для создания прогноза.
type NewTip struct {
	Match      string     `json:"match" validate:"required,max=200"`
	League     string     `json:"league" validate:"max=100"`
	Sport      string     `json:"sport" validate:"required,max=50"`
	Prediction string     `json:"prediction" validate:"required,max=2000"`
	Odds       float64    `json:"odds" validate:"required,gt=1"`
	Stake      *float64   `json:"stake,omitempty" validate:"omitempty,gt=0"`
	IsPremium  bool       `json:"is_premium"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	Result     string     `json:"result,omitempty" validate:"omitempty,oneof=pending won lost"`
}

// ValidTipResult проверяет значение результата прогноза.
func ValidTipResult(r string) bool {
	switch r {
	case TipPending, TipWon, TipLost:
		return true
	}
	return false
}
