// Package auth отвечает за регистрацию, вход, выпуск и отзыв токенов
// и проверку сессии по базе на каждом запросе.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/wisepicks/internal/access"
	"github.com/magabrotheeeer/wisepicks/internal/lib/jwt"
	"github.com/magabrotheeeer/wisepicks/internal/lib/metrics"
	"github.com/magabrotheeeer/wisepicks/internal/lib/password"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/models"
	"github.com/magabrotheeeer/wisepicks/internal/services"
	"github.com/magabrotheeeer/wisepicks/internal/storage/repository"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsEmailOrNickname(ctx context.Context, email, nickname string) (bool, error)
	UpdateNickname(ctx context.Context, userID, nickname string) (*models.User, error)
}

// TokenStore хранит отозванные refresh-токены.
type TokenStore interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AdminStore создаёт администратора при первом запуске.
type AdminStore interface {
	EnsureAdmin(ctx context.Context, email, nickname, passwordHash string) error
}

// Tokens пара токенов и профиль пользователя.
type Tokens struct {
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	User         models.Profile `json:"user"`
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users   UserRepository
	tokens  TokenStore
	access  jwt.Maker
	refresh jwt.Maker
	log     *slog.Logger
	now     func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, tokens TokenStore, accessMaker, refreshMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		access:  accessMaker,
		refresh: refreshMaker,
		log:     log,
		now:     time.Now,
	}
}

// Register создает нового пользователя с ролью "user".
func (s *AuthService) Register(ctx context.Context, email, nickname, rawPassword string) (*models.Profile, error) {
	const op = "auth.Register"
	email = strings.ToLower(strings.TrimSpace(email))
	nickname = strings.TrimSpace(nickname)

	exists, err := s.users.ExistsEmailOrNickname(ctx, email, nickname)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrAlreadyExists)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.CreateUser(ctx, models.User{
		Email:        email,
		Nickname:     nickname,
		PasswordHash: hashed,
		Role:         models.RoleUser,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RegistrationsTotal.Inc()
	profile := access.ProfileOf(user, s.now())
	return &profile, nil
}

// Login проверяет пароль и выдаёт пару токенов. Заблокированный пользователь
// получает ErrBanned даже при верном пароле.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*Tokens, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsBanned {
		metrics.LoginsTotal.WithLabelValues("banned").Inc()
		return nil, fmt.Errorf("%s: %w", op, services.ErrBanned)
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return s.issue(user)
}

// Refresh выдаёт новую пару по refresh-токену. Использованный токен отзывается.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	const op = "auth.Refresh"
	claims, err := s.refresh.ParseToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, services.ErrInvalidToken, err)
	}
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, fmt.Errorf("%s: %w", op, services.ErrTokenRevoked)
	}
	user, err := s.activeUser(ctx, claims.UserID())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.revoke(ctx, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.issue(user)
}

// Logout отзывает refresh-токен до истечения его срока.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	const op = "auth.Logout"
	claims, err := s.refresh.ParseToken(refreshToken)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, services.ErrInvalidToken, err)
	}
	if err = s.revoke(ctx, claims); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Authenticate проверяет access-токен и загружает пользователя из базы.
// Роль и премиум-статус берутся из базы, а не из токена.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "auth.Authenticate"
	claims, err := s.access.ParseToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, services.ErrInvalidToken, err)
	}
	user, err := s.activeUser(ctx, claims.UserID())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Me возвращает профиль пользователя.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "auth.Me"
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profile := access.ProfileOf(user, s.now())
	return &profile, nil
}

// UpdateProfile меняет никнейм. Занятый никнейм даёт ErrAlreadyExists.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, nickname string) (*models.Profile, error) {
	const op = "auth.UpdateProfile"
	user, err := s.users.UpdateNickname(ctx, userID, strings.TrimSpace(nickname))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profile := access.ProfileOf(user, s.now())
	return &profile, nil
}

func (s *AuthService) activeUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, services.ErrInvalidToken
		}
		return nil, err
	}
	if user.IsBanned {
		return nil, services.ErrBanned
	}
	return user, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *jwt.CustomClaims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	return s.tokens.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Sub(s.now()))
}

func (s *AuthService) issue(user *models.User) (*Tokens, error) {
	const op = "auth.issue"
	accessToken, err := s.access.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refreshToken, err := s.refresh.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("tokens issued", slog.String("user_id", user.ID))
	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         access.ProfileOf(user, s.now()),
	}, nil
}

// Bootstrap создаёт учётную запись администратора, если её ещё нет.
func (s *AuthService) Bootstrap(ctx context.Context, admins AdminStore, email, nickname, rawPassword string) error {
	const op = "auth.Bootstrap"
	if email == "" || rawPassword == "" {
		return nil
	}
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = admins.EnsureAdmin(ctx, strings.ToLower(email), nickname, hashed); err != nil {
		s.log.Error("failed to bootstrap admin", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
