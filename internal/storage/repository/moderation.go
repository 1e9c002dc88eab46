package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

// SetBanned блокирует или разблокирует пользователя и пишет запись в журнал действий.
func (s *Storage) SetBanned(ctx context.Context, userID string, banned bool, actorID string) (*models.User, error) {
	const op = "storage.SetBanned"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	action := models.ActionUnbanUser
	if banned {
		action = models.ActionBanUser
	}

	var user *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx,
			`UPDATE users SET is_banned = $1, updated_at = NOW()
			 WHERE id = $2
			 RETURNING `+userColumns, banned, userID))
		if err != nil {
			return mapErr(err)
		}
		if err = insertActivity(ctx, tx, &actorID, action, userID, ""); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GrantPremium выставляет premium_until, создаёт уведомление и запись в журнале одной транзакцией.
func (s *Storage) GrantPremium(ctx context.Context, userID string, until time.Time, actorID string) (*models.User, *models.Notification, error) {
	const op = "storage.GrantPremium"
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		user  *models.User
		notif *models.Notification
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx,
			`UPDATE users SET premium_until = $1, updated_at = NOW()
			 WHERE id = $2
			 RETURNING `+userColumns, until, userID))
		if err != nil {
			return mapErr(err)
		}
		title, message := models.PremiumActivatedNotice(until)
		n, err := insertNotification(ctx, tx, userID, title, message)
		if err != nil {
			return err
		}
		details := "premium_until=" + until.UTC().Format(time.RFC3339)
		if err = insertActivity(ctx, tx, &actorID, models.ActionGrantPremium, userID, details); err != nil {
			return err
		}
		user, notif = u, n
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, notif, nil
}

// RemovePremium сбрасывает premium_until в NULL.
func (s *Storage) RemovePremium(ctx context.Context, userID, actorID string) (*models.User, error) {
	const op = "storage.RemovePremium"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var user *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx,
			`UPDATE users SET premium_until = NULL, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns, userID))
		if err != nil {
			return mapErr(err)
		}
		if err = insertActivity(ctx, tx, &actorID, models.ActionRemovePremium, userID, ""); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ResetPassword сохраняет новый хэш пароля пользователя.
func (s *Storage) ResetPassword(ctx context.Context, userID, passwordHash, actorID string) error {
	const op = "storage.ResetPassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
			passwordHash, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return insertActivity(ctx, tx, &actorID, models.ActionResetPassword, userID, "")
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
