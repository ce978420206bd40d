package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/spesesmart/internal/cache"
	"github.com/magabrotheeeer/spesesmart/internal/config"
	"github.com/magabrotheeeer/spesesmart/internal/lib/jwt"
	"github.com/magabrotheeeer/spesesmart/internal/migrations"
	"github.com/magabrotheeeer/spesesmart/internal/services"
	"github.com/magabrotheeeer/spesesmart/internal/services/report"
	"github.com/magabrotheeeer/spesesmart/internal/services/subscription"
	"github.com/magabrotheeeer/spesesmart/internal/services/transaction"
	"github.com/magabrotheeeer/spesesmart/internal/services/user"
	"github.com/magabrotheeeer/spesesmart/internal/storage"
)

// App — REST-сервер с его ресурсами.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
}

// New подключает хранилище и кеш, применяет миграции и собирает маршруты.
// Без адреса Redis сервисы работают без кеша.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		redisCache *cache.Cache
		svcCache   services.Cache = services.NopCache{}
	)
	if cfg.AddressRedis != "" {
		redisCache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		svcCache = redisCache
	} else {
		logger.Warn("redis address is empty, cache disabled")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	txService := transaction.New(db, svcCache, cfg.CacheTTL, logger)
	userService := user.New(db, svcCache, cfg.CacheTTL, jwtMaker, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Transactions:  txService,
		Users:         userService,
		Subscriptions: subscription.New(db, svcCache, cfg.CacheTTL, logger),
		Reports:       report.New(userService, txService),
		Health:        db,
		JWT:           jwtMaker,
		WriteLimiter:  rate.NewLimiter(rate.Limit(cfg.WriteRateLimit), cfg.WriteRateBurst),
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  redisCache,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.db.Close()
}
