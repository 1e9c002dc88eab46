package models

import "time"

// Действия администратора, попадающие в activity_log.
const (
	ActionBanUser        = "ban_user"
	ActionUnbanUser      = "unban_user"
	ActionGrantPremium   = "grant_premium"
	ActionRemovePremium  = "remove_premium"
	ActionResetPassword  = "reset_password"
	ActionPaymentConfirm = "payment_confirmed"
)

// Activity запись журнала действий.
type Activity struct {
	ID        int64     `json:"id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
