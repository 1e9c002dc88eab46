// Package odds конвертирует коэффициенты между десятичным, американским и дробным
// форматами. Десятичный формат используется как каноническое промежуточное представление.
package odds

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format формат записи коэффициента.
type Format string

const (
	// Decimal десятичный формат, например 2.50.
	Decimal Format = "decimal"
	// American американский формат, например +150 или -200.
	American Format = "american"
	// Fractional дробный формат "N/D", например 3/2.
	Fractional Format = "fractional"
)

var (
	// ErrInvalidOdds возвращается для коэффициентов, которые не дают десятичное значение > 1.
	ErrInvalidOdds = errors.New("invalid odds")
	// ErrInvalidFractional возвращается, если строку "N/D" не удалось разобрать.
	ErrInvalidFractional = errors.New("invalid fractional odds")
	// ErrUnknownFormat возвращается для неизвестного формата.
	ErrUnknownFormat = errors.New("unknown odds format")
)

// Quote содержит коэффициент во всех форматах.
type Quote struct {
	Decimal            float64 `json:"decimal"`
	American           float64 `json:"american"`
	Fractional         string  `json:"fractional"`
	ImpliedProbability float64 `json:"implied_probability"`
}

// ParseFormat проверяет строковое имя формата.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Decimal, American, Fractional:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ValidateDecimal проверяет, что десятичный коэффициент строго больше 1.
func ValidateDecimal(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 1 {
		return fmt.Errorf("%w: decimal odds must be greater than 1, got %v", ErrInvalidOdds, d)
	}
	return nil
}

// AmericanToDecimal переводит американский коэффициент в десятичный.
// Значения в интервале (-100, 100) не имеют смысла и отклоняются.
func AmericanToDecimal(a float64) (float64, error) {
	if math.IsNaN(a) || math.IsInf(a, 0) || (a > -100 && a < 100) {
		return 0, fmt.Errorf("%w: american odds must be <= -100 or >= 100, got %v", ErrInvalidOdds, a)
	}
	if a > 0 {
		return 1 + a/100, nil
	}
	return 1 + 100/math.Abs(a), nil
}

// DecimalToAmerican переводит десятичный коэффициент в американский.
func DecimalToAmerican(d float64) (float64, error) {
	if err := ValidateDecimal(d); err != nil {
		return 0, err
	}
	if d >= 2 {
		return (d - 1) * 100, nil
	}
	return -100 / (d - 1), nil
}

// FractionalToDecimal разбирает строку "N/D" и возвращает N/D + 1.
func FractionalToDecimal(s string) (float64, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFractional, s)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: numerator %q", ErrInvalidFractional, num)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: denominator %q", ErrInvalidFractional, den)
	}
	if d == 0 || n/d <= 0 || math.IsInf(n/d, 0) || math.IsNaN(n/d) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFractional, s)
	}
	return n/d + 1, nil
}

// DecimalToFractional возвращает дробь вида "(d-1)/1" без сокращения.
func DecimalToFractional(d float64) (string, error) {
	if err := ValidateDecimal(d); err != nil {
		return "", err
	}
	return strconv.FormatFloat(d-1, 'f', 2, 64) + "/1", nil
}

// ToDecimal нормализует коэффициент из любого формата в десятичный.
func ToDecimal(value string, from Format) (float64, error) {
	value = strings.TrimSpace(value)
	switch from {
	case Decimal:
		d, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidOdds, value)
		}
		if err = ValidateDecimal(d); err != nil {
			return 0, err
		}
		return d, nil
	case American:
		a, err := strconv.ParseFloat(strings.TrimPrefix(value, "+"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidOdds, value)
		}
		return AmericanToDecimal(a)
	case Fractional:
		return FractionalToDecimal(value)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, from)
	}
}

// ImpliedProbability возвращает подразумеваемую вероятность 1/d.
func ImpliedProbability(d float64) (float64, error) {
	if err := ValidateDecimal(d); err != nil {
		return 0, err
	}
	return 1 / d, nil
}

// FairValue возвращает stake / impliedProbability. Значение информационное.
func FairValue(stake, d float64) (float64, error) {
	p, err := ImpliedProbability(d)
	if err != nil {
		return 0, err
	}
	return stake / p, nil
}

// Convert переводит коэффициент из формата from во все форматы сразу.
func Convert(value string, from Format) (Quote, error) {
	d, err := ToDecimal(value, from)
	if err != nil {
		return Quote{}, err
	}
	return FromDecimal(d)
}

// FromDecimal строит Quote по десятичному коэффициенту.
func FromDecimal(d float64) (Quote, error) {
	a, err := DecimalToAmerican(d)
	if err != nil {
		return Quote{}, err
	}
	f, err := DecimalToFractional(d)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Decimal:            d,
		American:           a,
		Fractional:         f,
		ImpliedProbability: 1 / d,
	}, nil
}
