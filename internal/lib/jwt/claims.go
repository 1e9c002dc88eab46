package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrWrongTokenType токен подписан верно, но предназначен для другой цели.
var ErrWrongTokenType = errors.New("wrong token type")

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
// Идентификатор пользователя хранится в Subject, уникальный id токена в ID.
type CustomClaims struct {
	Role                 string `json:"role"`
	Type                 string `json:"typ"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt, Subject, ID
}

// UserID идентификатор пользователя из токена.
func (c *CustomClaims) UserID() string {
	return c.Subject
}

// GenerateToken создает JWT токен, подписывая его секретным ключом (HS256).
func (j *MakerImpl) GenerateToken(userID, role string) (string, error) {
	const op = "jwt.GenerateToken"
	now := time.Now()
	claims := CustomClaims{
		Role: role,
		Type: j.tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken парсит JWT токен, проверяет подпись, срок действия и тип токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Type != j.tokenType {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: missing subject", op)
	}
	return claims, nil
}
