// Package dashboard собирает данные личного кабинета и считает выплаты
// и конвертацию коэффициентов для калькулятора.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/access"
	"github.com/magabrotheeeer/wisepicks/internal/lib/odds"
	"github.com/magabrotheeeer/wisepicks/internal/lib/payout"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/services"
)

const (
	recentTipsLimit = 5
	winRateWindow   = 30 * 24 * time.Hour
	// DefaultConvertStake ставка для расчёта fair value, если клиент её не передал.
	DefaultConvertStake = 100.0
	chartDateLayout     = "2006-01-02"
)

// Repository источник данных кабинета.
type Repository interface {
	ListTips(ctx context.Context, limit int) ([]*models.Tip, error)
	TipStatsSince(ctx context.Context, since time.Time) (models.TipStats, error)
	LatestBankroll(ctx context.Context, userID string) (float64, error)
	AddBankrollEntry(ctx context.Context, userID string, balance float64, description string) (*models.BankrollEntry, error)
	AddBet(ctx context.Context, bet models.Bet) (*models.Bet, error)
	ListBets(ctx context.Context, userID string) ([]*models.Bet, error)
}

// Conversion результат конвертации коэффициента.
type Conversion struct {
	odds.Quote
	Stake     float64 `json:"stake"`
	FairValue float64 `json:"fair_value"`
}

// DashboardService бизнес-логика личного кабинета.
type DashboardService struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// New создаёт сервис кабинета.
func New(repo Repository, log *slog.Logger) *DashboardService {
	return &DashboardService{repo: repo, log: log, now: time.Now}
}

// UserData возвращает профиль, пять последних прогнозов с учётом доступа,
// процент выигрышей за 30 дней, текущий банкролл и график баланса по ставкам.
func (s *DashboardService) UserData(ctx context.Context, user *models.User) (*models.UserDashboard, error) {
	const op = "dashboard.UserData"
	now := s.now()

	tips, err := s.repo.ListTips(ctx, recentTipsLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats, err := s.repo.TipStatsSince(ctx, now.Add(-winRateWindow))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	balance, err := s.repo.LatestBankroll(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	bets, err := s.repo.ListBets(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.UserDashboard{
		User:            access.ProfileOf(user, now),
		RecentTips:      access.RedactTips(tips, user, now),
		WinRate:         WinRate(stats),
		BankrollBalance: balance,
		SuccessRateData: BalanceSeries(bets),
	}, nil
}

// WinRate процент выигранных среди рассчитанных прогнозов, две цифры после
// запятой. Без рассчитанных прогнозов "0.00".
func WinRate(st models.TipStats) string {
	if st.Settled == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(st.Won)/float64(st.Settled)*100)
}

// BalanceSeries накопленный результат по ставкам в порядке их создания:
// выигрыш добавляет profit, проигрыш вычитает stake, pending не меняет баланс.
func BalanceSeries(bets []*models.Bet) []models.BalancePoint {
	points := make([]models.BalancePoint, 0, len(bets))
	var balance float64
	for _, b := range bets {
		switch b.Result {
		case models.TipWon:
			balance += b.Profit
		case models.TipLost:
			balance -= b.Stake
		}
		points = append(points, models.BalancePoint{
			Date:    b.CreatedAt.UTC().Format(chartDateLayout),
			Balance: payout.Round2(balance),
		})
	}
	return points
}

// Calculate считает прибыль и общий возврат.
func (s *DashboardService) Calculate(stake float64, value, format string) (payout.Result, error) {
	const op = "dashboard.Calculate"
	f, err := odds.ParseFormat(format)
	if err != nil {
		return payout.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := payout.Calculate(stake, value, f)
	if err != nil {
		return payout.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// Convert переводит коэффициент во все форматы и считает fair value для stake.
// Нулевая stake заменяется на DefaultConvertStake.
func (s *DashboardService) Convert(value, format string, stake float64) (*Conversion, error) {
	const op = "dashboard.Convert"
	f, err := odds.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stake == 0 {
		stake = DefaultConvertStake
	}
	if stake < 0 {
		return nil, fmt.Errorf("%s: %w", op, payout.ErrInvalidStake)
	}
	q, err := odds.Convert(value, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fv, err := odds.FairValue(stake, q.Decimal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Conversion{Quote: q, Stake: stake, FairValue: payout.Round2(fv)}, nil
}

// AddBankroll записывает новый баланс банкролла.
func (s *DashboardService) AddBankroll(ctx context.Context, user *models.User, balance float64, description string) (*models.BankrollEntry, error) {
	const op = "dashboard.AddBankroll"
	entry, err := s.repo.AddBankrollEntry(ctx, user.ID, balance, description)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("bankroll updated", slog.String("op", op), slog.String("user_id", user.ID))
	return entry, nil
}

// AddBet сохраняет ставку в истории пользователя.
func (s *DashboardService) AddBet(ctx context.Context, user *models.User, bet models.Bet) (*models.Bet, error) {
	const op = "dashboard.AddBet"
	if bet.Result == "" {
		bet.Result = models.TipPending
	}
	if !models.ValidTipResult(bet.Result) {
		return nil, fmt.Errorf("%s: %w: result %q", op, services.ErrInvalidInput, bet.Result)
	}
	if err := odds.ValidateDecimal(bet.Odds); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if bet.Stake <= 0 {
		return nil, fmt.Errorf("%s: %w", op, payout.ErrInvalidStake)
	}
	bet.UserID = user.ID
	saved, err := s.repo.AddBet(ctx, bet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}
