package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

// AddBankrollEntry сохраняет новую запись баланса.
func (s *Storage) AddBankrollEntry(ctx context.Context, userID string, balance float64, description string) (*models.BankrollEntry, error) {
	const op = "storage.AddBankrollEntry"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	e := &models.BankrollEntry{}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO bankroll (user_id, balance, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, balance, description, created_at`,
		userID, balance, description).Scan(&e.ID, &e.UserID, &e.Balance, &e.Description, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return e, nil
}

// LatestBankroll возвращает последний баланс пользователя или 0, если записей нет.
func (s *Storage) LatestBankroll(ctx context.Context, userID string) (float64, error) {
	const op = "storage.LatestBankroll"
	var balance float64
	err := s.DB.QueryRowContext(ctx,
		`SELECT balance FROM bankroll WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// AddBet сохраняет ставку в истории пользователя.
func (s *Storage) AddBet(ctx context.Context, bet models.Bet) (*models.Bet, error) {
	const op = "storage.AddBet"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	b := &models.Bet{}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO bets (user_id, match, selection, odds, stake, result, profit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, user_id, match, selection, odds, stake, result, profit, created_at`,
		bet.UserID, bet.Match, bet.Selection, bet.Odds, bet.Stake, bet.Result, bet.Profit).
		Scan(&b.ID, &b.UserID, &b.Match, &b.Selection, &b.Odds, &b.Stake, &b.Result, &b.Profit, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return b, nil
}

// ListBets возвращает историю ставок пользователя в хронологическом порядке.
func (s *Storage) ListBets(ctx context.Context, userID string) ([]*models.Bet, error) {
	const op = "storage.ListBets"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, match, selection, odds, stake, result, profit, created_at
		 FROM bets WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Bet
	for rows.Next() {
		b := &models.Bet{}
		if err = rows.Scan(&b.ID, &b.UserID, &b.Match, &b.Selection, &b.Odds, &b.Stake,
			&b.Result, &b.Profit, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
