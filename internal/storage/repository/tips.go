package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

const tipColumns = `id, match, league, sport, prediction, odds, stake, is_premium, start_time, result,
	created_by, created_at, updated_at`

func scanTip(row interface{ Scan(dest ...any) error }) (*models.Tip, error) {
	t := &models.Tip{}
	var (
		odds      float64
		stake     sql.NullFloat64
		startTime sql.NullTime
		createdBy sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Match, &t.League, &t.Sport, &t.Prediction, &odds, &stake,
		&t.IsPremium, &startTime, &t.Result, &createdBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Odds = &odds
	t.Stake = floatPtr(stake)
	if startTime.Valid {
		st := startTime.Time
		t.StartTime = &st
	}
	if createdBy.Valid {
		t.CreatedBy = &createdBy.String
	}
	return t, nil
}

// CreateTip сохраняет новый прогноз.
func (s *Storage) CreateTip(ctx context.Context, tip models.NewTip, createdBy string) (*models.Tip, error) {
	const op = "storage.CreateTip"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result := tip.Result
	if result == "" {
		result = models.TipPending
	}
	t, err := scanTip(s.DB.QueryRowContext(ctx,
		`INSERT INTO tips (match, league, sport, prediction, odds, stake, is_premium, start_time, result, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+tipColumns,
		tip.Match, tip.League, tip.Sport, tip.Prediction, tip.Odds, nullFloat(tip.Stake),
		tip.IsPremium, tip.StartTime, result, createdBy))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return t, nil
}

// ListTips возвращает прогнозы, новые первыми. limit <= 0 означает без ограничения.
func (s *Storage) ListTips(ctx context.Context, limit int) ([]*models.Tip, error) {
	const op = "storage.ListTips"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + tipColumns + ` FROM tips ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Tip, 0)
	for rows.Next() {
		t, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteTip удаляет прогноз. Отсутствующий прогноз даёт ErrNotFound.
func (s *Storage) DeleteTip(ctx context.Context, id int64) error {
	const op = "storage.DeleteTip"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM tips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// UpdateTipResult выставляет результат прогноза.
func (s *Storage) UpdateTipResult(ctx context.Context, id int64, result string) (*models.Tip, error) {
	const op = "storage.UpdateTipResult"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	t, err := scanTip(s.DB.QueryRowContext(ctx,
		`UPDATE tips SET result = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING `+tipColumns, result, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return t, nil
}

// TipStatsSince считает рассчитанные и выигравшие прогнозы, созданные начиная с since.
func (s *Storage) TipStatsSince(ctx context.Context, since time.Time) (models.TipStats, error) {
	const op = "storage.TipStatsSince"
	var st models.TipStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE result <> 'pending'),
		        COUNT(*) FILTER (WHERE result = 'won')
		 FROM tips WHERE created_at >= $1`, since).Scan(&st.Settled, &st.Won)
	if err != nil {
		return models.TipStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// CountPendingTips число ещё не рассчитанных прогнозов.
func (s *Storage) CountPendingTips(ctx context.Context) (int, error) {
	const op = "storage.CountPendingTips"
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tips WHERE result = 'pending'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
