// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/wisepicks/internal/lib/odds"
	"github.com/magabrotheeeer/wisepicks/internal/lib/payout"
	"github.com/magabrotheeeer/wisepicks/internal/services"
	"github.com/magabrotheeeer/wisepicks/internal/storage/repository"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OK возвращает успешный Response без данных.
func OK() Response {
	return Response{Status: StatusOK}
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than or equal to %s", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers and letters", err.Field()))
		case "numeric":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// StatusFor сопоставляет доменную ошибку с HTTP-статусом и текстом для клиента.
// Неизвестные ошибки дают 500 с общим сообщением, исходный текст только в логе.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, services.ErrTokenRevoked):
		return http.StatusUnauthorized, "token revoked"
	case errors.Is(err, services.ErrBanned):
		return http.StatusForbidden, "user is banned"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrPaymentNotCompleted):
		return http.StatusConflict, "payment not completed"
	case errors.Is(err, services.ErrPaymentExpired):
		return http.StatusConflict, "payment expired"
	case errors.Is(err, services.ErrInvalidPlan):
		return http.StatusBadRequest, "invalid plan"
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, unwrapMessage(err, services.ErrInvalidInput)
	case errors.Is(err, odds.ErrInvalidFractional):
		return http.StatusBadRequest, odds.ErrInvalidFractional.Error()
	case errors.Is(err, odds.ErrInvalidOdds):
		return http.StatusBadRequest, odds.ErrInvalidOdds.Error()
	case errors.Is(err, odds.ErrUnknownFormat):
		return http.StatusBadRequest, odds.ErrUnknownFormat.Error()
	case errors.Is(err, payout.ErrInvalidStake):
		return http.StatusBadRequest, payout.ErrInvalidStake.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// RenderError пишет ответ с ошибкой по правилам StatusFor и возвращает статус.
func RenderError(w http.ResponseWriter, r *http.Request, err error) int {
	code, msg := StatusFor(err)
	render.Status(r, code)
	render.JSON(w, r, Error(msg))
	return code
}

// unwrapMessage оставляет часть сообщения начиная с sentinel, без префиксов op.
func unwrapMessage(err, sentinel error) string {
	s := err.Error()
	if i := strings.Index(s, sentinel.Error()); i >= 0 {
		return s[i:]
	}
	return sentinel.Error()
}
