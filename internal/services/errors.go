// Package services содержит ошибки бизнес-уровня, общие для всех сервисов.
// Сами сервисы лежат в подпакетах.
package services

import "errors"

var (
	// ErrInvalidCredentials неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken токен не прошёл проверку.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked refresh-токен отозван.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrBanned пользователь заблокирован.
	ErrBanned = errors.New("user is banned")
	// ErrForbidden недостаточно прав.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidPlan неизвестный тарифный план.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrInvalidInput входные данные не прошли проверку бизнес-правил.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPaymentNotCompleted шлюз ещё не подтвердил оплату.
	ErrPaymentNotCompleted = errors.New("payment not completed")
	// ErrPaymentExpired срок счёта истёк до подтверждения.
	ErrPaymentExpired = errors.New("payment expired")
)
