// Package notification чтение и отметка уведомлений пользователя.
package notification

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

const listLimit = 50

// Repository хранилище уведомлений.
type Repository interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64, userID string) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// NotificationService бизнес-логика уведомлений.
type NotificationService struct {
	repo Repository
}

// New создаёт сервис уведомлений.
func New(repo Repository) *NotificationService {
	return &NotificationService{repo: repo}
}

// List последние уведомления пользователя, новые первыми.
func (s *NotificationService) List(ctx context.Context, user *models.User) ([]*models.Notification, error) {
	const op = "notification.List"
	items, err := s.repo.ListNotifications(ctx, user.ID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return items, nil
}

// MarkRead отмечает уведомление прочитанным. Чужое уведомление
// неотличимо от отсутствующего.
func (s *NotificationService) MarkRead(ctx context.Context, user *models.User, id int64) (*models.Notification, error) {
	const op = "notification.MarkRead"
	n, err := s.repo.MarkNotificationRead(ctx, id, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// MarkAllRead отмечает все уведомления прочитанными и возвращает их количество.
func (s *NotificationService) MarkAllRead(ctx context.Context, user *models.User) (int64, error) {
	const op = "notification.MarkAllRead"
	n, err := s.repo.MarkAllNotificationsRead(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
