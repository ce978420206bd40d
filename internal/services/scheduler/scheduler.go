// Package scheduler материализует наступившие списания подписок в транзакции
// и оповещает бота через RabbitMQ.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/lib/metrics"
	"github.com/magabrotheeeer/spesesmart/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services"
)

// maxCatchUp ограничивает число списаний одной подписки за один проход.
const maxCatchUp = 36

// SubscriptionRepository определяет методы хранилища, нужные планировщику.
type SubscriptionRepository interface {
	ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error)
	ChargeSubscription(ctx context.Context, tx models.Transaction, next models.Subscription) error
}

// SchedulerService периодически списывает подписки.
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher rabbitmq.Publisher
	cache     services.Cache
	log       *slog.Logger
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// publisher может быть nil: тогда события не публикуются.
func NewSchedulerService(repo SubscriptionRepository, publisher rabbitmq.Publisher, cache services.Cache, log *slog.Logger) *SchedulerService {
	if cache == nil {
		cache = services.NopCache{}
	}
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		log:       log,
		now:       time.Now,
	}
}

// Run выполняет проход сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	charged, err := s.ChargeDue(ctx)
	if err != nil {
		s.log.Error("failed to charge subscriptions", sl.Err(err))
		return
	}
	if charged == 0 {
		s.log.Debug("no due subscriptions")
		return
	}
	s.log.Info("subscriptions charged", slog.Int("count", charged))
}

// ChargeDue списывает все наступившие подписки и возвращает число созданных транзакций.
// Идентификатор транзакции детерминирован, поэтому повторный проход дубликатов не создаёт.
func (s *SchedulerService) ChargeDue(ctx context.Context) (int, error) {
	const op = "services.scheduler.ChargeDue"

	now := s.now()
	due, err := s.repo.ListDueSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	charged := 0
	for _, sub := range due {
		for i := 0; i < maxCatchUp; i++ {
			tx, next, ok := sub.Charge(now)
			if !ok {
				break
			}
			if err := s.repo.ChargeSubscription(ctx, tx, next); err != nil {
				s.log.Error("failed to charge subscription",
					slog.String("subscription_id", sub.ID), sl.Err(err))
				break
			}
			charged++
			metrics.SubscriptionsCharged.Inc()
			metrics.TransactionsCreated.WithLabelValues("scheduler").Inc()
			s.publish(sub, tx, next)
			sub = next
		}
		if err := s.cache.Invalidate(ctx,
			services.TransactionsKey(sub.UserID),
			services.SubscriptionsKey(sub.UserID),
		); err != nil {
			s.log.Warn("failed to invalidate cache", slog.String("user_id", sub.UserID), sl.Err(err))
		}
	}
	return charged, nil
}

func (s *SchedulerService) publish(sub models.Subscription, tx models.Transaction, next models.Subscription) {
	if s.publisher == nil {
		return
	}
	event := models.ChargedEvent{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		TransactionID:  tx.ID,
		Name:           sub.Name,
		Amount:         tx.Amount,
		Currency:       tx.Currency,
		ChargedAt:      tx.Date,
		NextDueDate:    next.NextDueDate,
	}
	if err := rabbitmq.PublishMessage(s.publisher, rabbitmq.NotificationsExchange, rabbitmq.ChargedRoutingKey, event); err != nil {
		s.log.Error("failed to publish message", sl.Err(err))
	}
}
