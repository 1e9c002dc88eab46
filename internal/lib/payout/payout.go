// Package payout считает прибыль и общий возврат по ставке.
package payout

import (
	"errors"
	"fmt"
	"math"

	"github.com/magabrotheeeer/wisepicks/internal/lib/odds"
)

// ErrInvalidStake возвращается для нулевой или отрицательной ставки.
var ErrInvalidStake = errors.New("stake must be positive")

// Result результат расчёта выплаты.
type Result struct {
	Stake       float64 `json:"stake"`
	Decimal     float64 `json:"decimal_odds"`
	Profit      float64 `json:"profit"`
	TotalReturn float64 `json:"total_return"`
}

// Calculate нормализует коэффициент в десятичный формат и считает
// profit = stake*d - stake, total_return = stake + profit.
func Calculate(stake float64, value string, format odds.Format) (Result, error) {
	const op = "payout.Calculate"
	if math.IsNaN(stake) || math.IsInf(stake, 0) || stake <= 0 {
		return Result{}, fmt.Errorf("%s: %w", op, ErrInvalidStake)
	}
	d, err := odds.ToDecimal(value, format)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return FromDecimal(stake, d)
}

// FromDecimal считает выплату для уже нормализованного десятичного коэффициента.
func FromDecimal(stake, d float64) (Result, error) {
	const op = "payout.FromDecimal"
	if math.IsNaN(stake) || math.IsInf(stake, 0) || stake <= 0 {
		return Result{}, fmt.Errorf("%s: %w", op, ErrInvalidStake)
	}
	if err := odds.ValidateDecimal(d); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	profit := stake*d - stake
	return Result{
		Stake:       stake,
		Decimal:     d,
		Profit:      Round2(profit),
		TotalReturn: Round2(stake + profit),
	}, nil
}

// Round2 округляет до двух знаков (half away from zero).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Format2 форматирует сумму с двумя знаками после запятой.
func Format2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
