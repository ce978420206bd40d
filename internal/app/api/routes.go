// Package api собирает REST-сервер трекера: хранилище, кеш, сервисы и маршруты.
package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/spesesmart/internal/http/handlers/health"
	reporthandler "github.com/magabrotheeeer/spesesmart/internal/http/handlers/report"
	subcreate "github.com/magabrotheeeer/spesesmart/internal/http/handlers/subscription/create"
	sublist "github.com/magabrotheeeer/spesesmart/internal/http/handlers/subscription/list"
	subremove "github.com/magabrotheeeer/spesesmart/internal/http/handlers/subscription/remove"
	txcreate "github.com/magabrotheeeer/spesesmart/internal/http/handlers/transaction/create"
	txlist "github.com/magabrotheeeer/spesesmart/internal/http/handlers/transaction/list"
	txremove "github.com/magabrotheeeer/spesesmart/internal/http/handlers/transaction/remove"
	"github.com/magabrotheeeer/spesesmart/internal/http/handlers/user/login"
	"github.com/magabrotheeeer/spesesmart/internal/http/handlers/user/read"
	"github.com/magabrotheeeer/spesesmart/internal/http/handlers/user/update"
	"github.com/magabrotheeeer/spesesmart/internal/http/middlewarectx"
	"github.com/magabrotheeeer/spesesmart/internal/lib/jwt"
	"github.com/magabrotheeeer/spesesmart/internal/services/report"
	"github.com/magabrotheeeer/spesesmart/internal/services/subscription"
	"github.com/magabrotheeeer/spesesmart/internal/services/transaction"
	"github.com/magabrotheeeer/spesesmart/internal/services/user"
)

// Services — зависимости маршрутов.
type Services struct {
	Transactions  *transaction.Service
	Users         *user.Service
	Subscriptions *subscription.Service
	Reports       *report.Builder
	Health        health.Checker
	JWT           jwt.Maker
	WriteLimiter  *rate.Limiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	limit := middlewarectx.RateLimitMiddleware(s.WriteLimiter, logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions", txlist.New(logger, s.Transactions).ServeHTTP)
		r.Get("/users/{id}", read.New(logger, s.Users).ServeHTTP)
		r.Get("/subscriptions", sublist.New(logger, s.Subscriptions).ServeHTTP)
		r.Get("/report", reporthandler.New(logger, s.Reports).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/login", login.New(logger, s.Users).ServeHTTP)
			r.Post("/transactions", txcreate.New(logger, s.Transactions).ServeHTTP)
			r.Delete("/transactions/{id}", txremove.New(logger, s.Transactions).ServeHTTP)
			r.Post("/subscriptions", subcreate.New(logger, s.Subscriptions).ServeHTTP)
			r.Delete("/subscriptions/{id}", subremove.New(logger, s.Subscriptions).ServeHTTP)

			r.With(
				middlewarectx.JWTMiddleware(s.JWT, logger),
				middlewarectx.RequireSelf("id", logger),
			).Put("/users/{id}", update.New(logger, s.Users).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
