// Package request разбор и валидация JSON-тел запросов в едином стиле:
// 400 для некорректного JSON, 422 для нарушений правил валидации.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/wisepicks/internal/http/response"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
)

// Bind декодирует тело в dst и проверяет теги validate. При ошибке ответ
// уже записан, и обработчик должен просто вернуться.
func Bind(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, dst any) bool {
	return bind(w, r, log, v, dst, false)
}

// BindOptional как Bind, но пустое тело допустимо и оставляет dst без изменений.
func BindOptional(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, dst any) bool {
	return bind(w, r, log, v, dst, true)
}

func bind(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, dst any, optional bool) bool {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return true
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("empty request body"))
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Warn("validation failed", sl.Err(err))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return false
		}
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	return true
}

// IDParam читает положительный целочисленный параметр маршрута.
func IDParam(w http.ResponseWriter, r *http.Request, log *slog.Logger, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Warn("invalid id in url", slog.String(name, raw))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return 0, false
	}
	return id, true
}
