// Package access реализует правило премиум‑доступа: какие прогнозы и функции
// доступны пользователю в данный момент. Правило вычисляется только на сервере.
package access

import (
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

// IsPremium true, если premium_until задан и строго больше now.
func IsPremium(u *models.User, now time.Time) bool {
	return u != nil && u.PremiumUntil != nil && u.PremiumUntil.After(now)
}

// CanViewPremium администратор видит премиум‑контент независимо от подписки.
func CanViewPremium(u *models.User, now time.Time) bool {
	return u.IsAdmin() || IsPremium(u, now)
}

// RedactTip возвращает копию прогноза, безопасную для показа viewer.
func RedactTip(t *models.Tip, viewer *models.User, now time.Time) *models.Tip {
	out := *t
	if !t.IsPremium || CanViewPremium(viewer, now) {
		return &out
	}
	out.Prediction = ""
	out.Odds = nil
	out.Stake = nil
	out.Locked = true
	return &out
}

// RedactTips применяет RedactTip к списку.
func RedactTips(tips []*models.Tip, viewer *models.User, now time.Time) []*models.Tip {
	allowed := CanViewPremium(viewer, now)
	out := make([]*models.Tip, 0, len(tips))
	for _, t := range tips {
		if allowed {
			cp := *t
			out = append(out, &cp)
			continue
		}
		out = append(out, RedactTip(t, viewer, now))
	}
	return out
}

// ProfileOf собирает публичный профиль с вычисленным is_premium.
func ProfileOf(u *models.User, now time.Time) models.Profile {
	return models.Profile{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		Role:         u.Role,
		PremiumUntil: u.PremiumUntil,
		IsPremium:    IsPremium(u, now),
		CreatedAt:    u.CreatedAt,
	}
}
