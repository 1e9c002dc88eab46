package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

func insertNotification(ctx context.Context, q queryer, userID, title, message string) (*models.Notification, error) {
	n := &models.Notification{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, title, message)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, title, message, is_read, created_at`,
		userID, title, message).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateNotification сохраняет уведомление для пользователя.
func (s *Storage) CreateNotification(ctx context.Context, userID, title, message string) (*models.Notification, error) {
	const op = "storage.CreateNotification"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	n, err := insertNotification(ctx, s.DB, userID, title, message)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return n, nil
}

// NotifyAllUsers создаёт одинаковое уведомление всем незаблокированным пользователям
// одним запросом и возвращает ID получателей.
func (s *Storage) NotifyAllUsers(ctx context.Context, title, message string) ([]string, error) {
	const op = "storage.NotifyAllUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`INSERT INTO notifications (user_id, title, message)
		 SELECT id, $1, $2 FROM users WHERE NOT is_banned
		 RETURNING user_id`, title, message)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

// ListNotifications возвращает уведомления пользователя, новые первыми.
func (s *Storage) ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	const op = "storage.ListNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, title, message, is_read, created_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		if err = rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkNotificationRead отмечает уведомление прочитанным. Чужое или отсутствующее даёт ErrNotFound.
func (s *Storage) MarkNotificationRead(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	const op = "storage.MarkNotificationRead"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	n := &models.Notification{}
	err := s.DB.QueryRowContext(ctx,
		`UPDATE notifications SET is_read = TRUE
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, title, message, is_read, created_at`, id, userID).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return n, nil
}

// MarkAllNotificationsRead отмечает все непрочитанные уведомления пользователя и возвращает их число.
func (s *Storage) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	const op = "storage.MarkAllNotificationsRead"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
