// Package telegrambot собирает процесс Telegram-бота: хранилище, сервисы,
// языковую модель, ожидающие подтверждения записи и потребителя уведомлений о списаниях.
package telegrambot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/spesesmart/internal/bot"
	"github.com/magabrotheeeer/spesesmart/internal/cache"
	"github.com/magabrotheeeer/spesesmart/internal/config"
	"github.com/magabrotheeeer/spesesmart/internal/lib/jwt"
	"github.com/magabrotheeeer/spesesmart/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/llm"
	"github.com/magabrotheeeer/spesesmart/internal/services"
	"github.com/magabrotheeeer/spesesmart/internal/services/report"
	"github.com/magabrotheeeer/spesesmart/internal/services/transaction"
	"github.com/magabrotheeeer/spesesmart/internal/services/user"
	"github.com/magabrotheeeer/spesesmart/internal/storage"
)

// classifyTimeout ограничивает один вызов модели при обработке сообщения.
const classifyTimeout = 20 * time.Second

// App — процесс бота с его ресурсами.
type App struct {
	telegram *bot.Telegram
	notifier *bot.Notifier
	metrics  *http.Server
	db       *storage.Storage
	cache    *cache.Cache
	conn     *amqp.Connection
	ch       *amqp.Channel
	logger   *slog.Logger
}

// New подключает хранилище, Redis и RabbitMQ (последние два необязательны)
// и авторизуется в Telegram.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.telegrambot.New"

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("%s: TELEGRAM_BOT_TOKEN is not set", op)
	}

	a := &App{logger: logger}

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.db = db

	var svcCache services.Cache = services.NopCache{}
	var pending bot.PendingStore = bot.NewMemoryPending(cfg.PendingTTL)
	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		svcCache = a.cache
		pending = bot.NewCachePending(a.cache, cfg.PendingTTL)
	} else {
		logger.Warn("redis address is empty, pending confirmations kept in memory")
	}

	ai, err := llm.New(ctx, cfg.APIKey, cfg.Model, cfg.GenAI.Timeout)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ai.Configured() {
		logger.Warn("genai api key is empty, every message will get the fallback reply")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: telegram auth: %w", op, err)
	}

	users := user.New(db, svcCache, cfg.CacheTTL, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), logger)
	txs := transaction.New(db, svcCache, cfg.CacheTTL, logger)
	dispatcher := bot.NewDispatcher(users, txs, report.New(users, txs), ai, pending, classifyTimeout, logger)

	a.telegram = bot.NewTelegram(api, dispatcher, cfg.PollTimeout, logger)
	a.notifier = bot.NewNotifier(users, api, logger)

	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		logger.Warn("rabbitmq url is empty, charge notifications disabled")
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	return a, nil
}

// Run обрабатывает обновления и уведомления до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if a.ch != nil {
		for _, q := range rabbitmq.GetNotificationQueues() {
			if err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.logger, a.notifier.HandleCharged); err != nil {
				a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
				return err
			}
		}
	}

	if a.metrics != nil {
		go func() {
			a.logger.Info("metrics server starting", slog.String("address", a.metrics.Addr))
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", sl.Err(err))
			}
		}()
	}

	a.telegram.Run(ctx)

	a.logger.Info("bot shutting down gracefully")
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to stop metrics server", sl.Err(err))
		}
	}
	return nil
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
		a.ch = nil
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
		a.conn = nil
	}
	if a.cache != nil {
		_ = a.cache.Close()
		a.cache = nil
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}
