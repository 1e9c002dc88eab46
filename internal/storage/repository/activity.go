package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

func insertActivity(ctx context.Context, q queryer, actorID *string, action, targetID, details string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO activity_log (actor_id, action, target_id, details) VALUES ($1, $2, $3, $4)`,
		actorID, action, targetID, details)
	return err
}

// RecentActivity возвращает последние записи журнала действий.
func (s *Storage) RecentActivity(ctx context.Context, limit int) ([]*models.Activity, error) {
	const op = "storage.RecentActivity"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, actor_id, action, target_id, details, created_at
		 FROM activity_log ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Activity
	for rows.Next() {
		a := &models.Activity{}
		var actor sql.NullString
		if err = rows.Scan(&a.ID, &actor, &a.Action, &a.TargetID, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if actor.Valid {
			a.ActorID = &actor.String
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
