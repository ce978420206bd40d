// Package scheduler собирает процесс планировщика списаний подписок.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/spesesmart/internal/cache"
	"github.com/magabrotheeeer/spesesmart/internal/config"
	"github.com/magabrotheeeer/spesesmart/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/migrations"
	"github.com/magabrotheeeer/spesesmart/internal/services"
	schedulerservice "github.com/magabrotheeeer/spesesmart/internal/services/scheduler"
	"github.com/magabrotheeeer/spesesmart/internal/storage"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	interval         time.Duration
	db               *storage.Storage
	cache            *cache.Cache
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *storage.Storage) error {
	for range 10 {
		if err := db.CheckDatabaseReady(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика. Redis и RabbitMQ необязательны:
// без них кеш не сбрасывается, а события о списаниях не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	a := &App{interval: cfg.Interval, logger: logger}

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.db = db
	if err := waitForDB(ctx, db); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var svcCache services.Cache = services.NopCache{}
	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: cache not initialized: %w", op, err)
		}
		svcCache = a.cache
	}

	var publisher rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: failed to connect RabbitMQ: %w", op, err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: failed to setup RabbitMQ channel: %w", op, err)
		}
		publisher = a.ch
	} else {
		logger.Warn("rabbitmq url is empty, charge notifications disabled")
	}

	a.schedulerService = schedulerservice.NewSchedulerService(db, publisher, svcCache, logger)
	return a, nil
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("scheduler starting", slog.Duration("interval", a.interval))
	a.schedulerService.Run(ctx, a.interval)

	a.logger.Info("shutting down scheduler service")
	a.close()
	return nil
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.db.Close()
}
