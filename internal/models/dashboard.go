package models

// UserDashboard данные личного кабинета.
type UserDashboard struct {
	User            Profile        `json:"user"`
	RecentTips      []*Tip         `json:"recent_tips"`
	WinRate         string         `json:"win_rate"`
	BankrollBalance float64        `json:"bankroll_balance"`
	SuccessRateData []BalancePoint `json:"success_rate_data"`
}

// TipStats агрегаты по рассчитанным прогнозам за период.
type TipStats struct {
	Settled int
	Won     int
}

// AdminStats сводка для административной панели.
type AdminStats struct {
	TotalUsers     int         `json:"total_users"`
	PremiumUsers   int         `json:"premium_users"`
	ActiveTips     int         `json:"active_tips"`
	WinRate        string      `json:"win_rate"`
	RecentActivity []*Activity `json:"recent_activity"`
}
