package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

const paymentColumns = `id, user_id, charge_id, amount, currency, plan, duration, status, payment_url,
	expires_at, completed_at, created_at, updated_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	var completedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.ChargeID, &p.Amount, &p.Currency, &p.Plan, &p.Duration,
		&p.Status, &p.PaymentURL, &p.ExpiresAt, &completedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return p, nil
}

// CreatePayment сохраняет платёж в статусе pending.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (*models.Payment, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	created, err := scanPayment(s.DB.QueryRowContext(ctx,
		`INSERT INTO payments (user_id, charge_id, amount, currency, plan, duration, status, payment_url, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
		 RETURNING `+paymentColumns,
		p.UserID, p.ChargeID, p.Amount, p.Currency, p.Plan, p.Duration, p.PaymentURL, p.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// SetPaymentURL обновляет ссылку на оплату (после создания счёта у шлюза).
func (s *Storage) SetPaymentURL(ctx context.Context, id int64, url string) error {
	const op = "storage.SetPaymentURL"
	_, err := s.DB.ExecContext(ctx,
		`UPDATE payments SET payment_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPayment возвращает платёж по ID.
func (s *Storage) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	const op = "storage.GetPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// ListPendingPayments возвращает ожидающие платежи, созданные после since.
func (s *Storage) ListPendingPayments(ctx context.Context, since time.Time, limit int) ([]*models.Payment, error) {
	const op = "storage.ListPendingPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE status = 'pending' AND created_at >= $1
		 ORDER BY created_at LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ConfirmPayment переводит платёж в completed и активирует премиум одной транзакцией:
// статус платежа, premium_until пользователя, уведомление и запись в журнале.
// Строка платежа блокируется FOR UPDATE, поэтому повторное подтверждение
// (в том числе конкурентное) не продлевает подписку второй раз и возвращает
// Activation с AlreadyConfirmed = true.
func (s *Storage) ConfirmPayment(ctx context.Context, paymentID int64, actorID *string, now time.Time) (*models.Activation, *models.User, *models.Notification, error) {
	const op = "storage.ConfirmPayment"
	select {
	case <-ctx.Done():
		return nil, nil, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		activation *models.Activation
		user       *models.User
		notif      *models.Notification
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPayment(tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, paymentID))
		if err != nil {
			return mapErr(err)
		}

		if p.Status == models.PaymentCompleted {
			u, err := scanUser(tx.QueryRowContext(ctx,
				`SELECT `+userColumns+` FROM users WHERE id = $1`, p.UserID))
			if err != nil {
				return mapErr(err)
			}
			until := now
			if p.CompletedAt != nil {
				until = p.CompletedAt.AddDate(0, 0, p.Duration)
			}
			if u.PremiumUntil != nil {
				until = *u.PremiumUntil
			}
			activation = &models.Activation{Payment: p, PremiumUntil: until, AlreadyConfirmed: true}
			user = u
			return nil
		}

		until := now.AddDate(0, 0, p.Duration)
		p, err = scanPayment(tx.QueryRowContext(ctx,
			`UPDATE payments SET status = 'completed', completed_at = $1, updated_at = $1
			 WHERE id = $2 AND status = 'pending'
			 RETURNING `+paymentColumns, now, paymentID))
		if err != nil {
			return mapErr(err)
		}
		u, err := scanUser(tx.QueryRowContext(ctx,
			`UPDATE users SET premium_until = $1, updated_at = $2
			 WHERE id = $3
			 RETURNING `+userColumns, until, now, p.UserID))
		if err != nil {
			return mapErr(err)
		}
		title, message := models.PremiumActivatedNotice(until)
		n, err := insertNotification(ctx, tx, p.UserID, title, message)
		if err != nil {
			return err
		}
		details := "payment_id=" + strconv.FormatInt(p.ID, 10) + " plan=" + p.Plan
		if err = insertActivity(ctx, tx, actorID, models.ActionPaymentConfirm, p.UserID, details); err != nil {
			return err
		}
		activation = &models.Activation{Payment: p, PremiumUntil: until}
		user, notif = u, n
		return nil
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return activation, user, notif, nil
}
