package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
)

// RateLimitMiddleware ограничивает общую частоту запросов через limiter.
func RateLimitMiddleware(limiter *rate.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests", slog.String("request_id", middleware.GetReqID(r.Context())))
				response.Fail(w, r, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
