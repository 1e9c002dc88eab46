// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
//
// Используются два экземпляра MakerImpl: для токенов доступа и для refresh‑токенов,
// каждый со своим секретом, временем жизни и типом токена.
package jwt

import (
	"time"
)

const (
	// TypeAccess токен доступа.
	TypeAccess = "access"
	// TypeRefresh токен обновления.
	TypeRefresh = "refresh"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(userID, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
	TTL() time.Duration
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	tokenType string        // access или refresh
}

// NewJWTMaker создаёт Maker для токенов доступа.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		tokenType: TypeAccess,
	}
}

// NewRefreshMaker создаёт Maker для refresh‑токенов.
func NewRefreshMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		tokenType: TypeRefresh,
	}
}

// TTL время жизни выпускаемых токенов.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}
