package middlewarectx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/microcosm-cc/bluemonday"

	"github.com/magabrotheeeer/wisepicks/internal/http/response"
)

const maxBodyBytes = 1 << 20

// rawFields передаются обработчику как есть: пароль хешируется, а не выводится.
var rawFields = map[string]struct{}{
	"password":     {},
	"new_password": {},
}

// Sanitize удаляет HTML-разметку из строковых полей JSON-тела запроса.
// Строки без угловых скобок не меняются.
func Sanitize(log *slog.Logger) func(http.Handler) http.Handler {
	policy := bluemonday.StrictPolicy()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || !hasJSONBody(r) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			_ = r.Body.Close()
			if err != nil || len(raw) > maxBodyBytes {
				render.Status(r, http.StatusRequestEntityTooLarge)
				render.JSON(w, r, response.Error("request body too large"))
				return
			}

			var payload any
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&payload); err != nil {
				// разбор и ответ 400 остаются за обработчиком
				r.Body = io.NopCloser(bytes.NewReader(raw))
				next.ServeHTTP(w, r)
				return
			}

			clean, changed := sanitizeValue(policy, payload)
			if changed {
				if out, err := json.Marshal(clean); err == nil {
					log.Debug("request body sanitized", slog.String("path", r.URL.Path))
					raw = out
				}
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			r.ContentLength = int64(len(raw))
			next.ServeHTTP(w, r)
		})
	}
}

func hasJSONBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/json")
}

func sanitizeValue(p *bluemonday.Policy, v any) (any, bool) {
	switch t := v.(type) {
	case string:
		if !strings.ContainsAny(t, "<>") {
			return t, false
		}
		return strings.TrimSpace(p.Sanitize(t)), true
	case map[string]any:
		changed := false
		for k, item := range t {
			if _, ok := rawFields[k]; ok {
				continue
			}
			nv, c := sanitizeValue(p, item)
			if c {
				t[k] = nv
				changed = true
			}
		}
		return t, changed
	case []any:
		changed := false
		for i, item := range t {
			nv, c := sanitizeValue(p, item)
			if c {
				t[i] = nv
				changed = true
			}
		}
		return t, changed
	default:
		return v, false
	}
}
