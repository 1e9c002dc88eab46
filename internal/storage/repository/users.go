package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/models"
)

const userColumns = `id, email, nickname, password_hash, role, premium_until, is_banned, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	u := &models.User{}
	var premiumUntil sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &u.Role,
		&premiumUntil, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if premiumUntil.Valid {
		t := premiumUntil.Time
		u.PremiumUntil = &t
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (email, nickname, password_hash, role)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.Email, user.Nickname, user.PasswordHash, user.Role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// GetUserByID возвращает пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по e-mail без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// ExistsEmailOrNickname проверяет, занят ли e-mail или никнейм.
func (s *Storage) ExistsEmailOrNickname(ctx context.Context, email, nickname string) (bool, error) {
	const op = "storage.ExistsEmailOrNickname"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) OR nickname = $2)`,
		email, nickname).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListUsers возвращает пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateNickname меняет никнейм. Занятый никнейм даёт ErrAlreadyExists.
func (s *Storage) UpdateNickname(ctx context.Context, userID, nickname string) (*models.User, error) {
	const op = "storage.UpdateNickname"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`UPDATE users SET nickname = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING `+userColumns, nickname, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// EnsureAdmin создаёт администратора, если пользователя с таким e-mail ещё нет.
func (s *Storage) EnsureAdmin(ctx context.Context, email, nickname, passwordHash string) error {
	const op = "storage.EnsureAdmin"
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (email, nickname, password_hash, role)
		 VALUES ($1, $2, $3, 'admin')
		 ON CONFLICT (email) DO NOTHING`, email, nickname, passwordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

// FindPremiumExpiringBetween находит пользователей, чей премиум истекает в интервале [from, to).
func (s *Storage) FindPremiumExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error) {
	const op = "storage.FindPremiumExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE premium_until >= $1 AND premium_until < $2 AND NOT is_banned
		 ORDER BY premium_until`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountUsers возвращает общее число пользователей и число активных премиум‑пользователей на момент now.
func (s *Storage) CountUsers(ctx context.Context, now time.Time) (total, premium int, err error) {
	const op = "storage.CountUsers"
	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE premium_until > $1) FROM users`, now).
		Scan(&total, &premium)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, premium, nil
}
