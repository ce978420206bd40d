// Package middlewarectx содержит HTTP middleware API: проверку сессионного
// токена, ограничение частоты запросов на запись.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User — ключ идентификатора пользователя в контексте.
const User Key = "user_id"

// TokenParser проверяет токен и возвращает идентификатор пользователя.
type TokenParser interface {
	ParseToken(tokenStr string) (string, error)
}

// JWTMiddleware проверяет Bearer-токен в заголовке Authorization и кладёт
// идентификатор пользователя в контекст. Иначе отвечает 401.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				response.Fail(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			userID, err := parser.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				response.Fail(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), User, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSelf пропускает запрос, только если параметр маршрута param
// совпадает с пользователем из токена. Ставится после JWTMiddleware.
func RequireSelf(param string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := r.Context().Value(User).(string)
			if userID == "" || userID != chi.URLParam(r, param) {
				log.Warn("token subject mismatch",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("subject", userID),
				)
				response.Fail(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
