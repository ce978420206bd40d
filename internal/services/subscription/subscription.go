// Package subscription содержит бизнес-логику периодических платежей.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/spesesmart/internal/lib/metrics"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services"
)

// Repository определяет методы хранилища подписок.
type Repository interface {
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) (userID string, found bool, err error)
}

// Service реализует операции над подписками с кешированием списков.
type Service struct {
	repo  Repository
	cache services.Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт сервис подписок.
func New(repo Repository, cache services.Cache, ttl time.Duration, log *slog.Logger) *Service {
	if cache == nil {
		cache = services.NopCache{}
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, log: log}
}

// List возвращает подписки пользователя.
func (s *Service) List(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "services.subscription.List"

	key := services.SubscriptionsKey(userID)
	var cached []models.Subscription
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.cacheFailure(op, key, err)
	}
	if found {
		return cached, nil
	}

	list, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, list, s.ttl); err != nil {
		s.cacheFailure(op, key, err)
	}
	return list, nil
}

// Create нормализует и сохраняет подписку.
func (s *Service) Create(ctx context.Context, dto models.SubscriptionDTO) (models.Subscription, error) {
	const op = "services.subscription.Create"

	sub, err := dto.Sanitize()
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w: %w", op, models.ErrInvalidInput, err)
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription saved", slog.String("id", sub.ID), slog.String("user_id", sub.UserID))

	s.invalidate(ctx, op, sub.UserID)
	return sub, nil
}

// Remove удаляет подписку. Неизвестный id ошибкой не считается.
func (s *Service) Remove(ctx context.Context, id string) error {
	const op = "services.subscription.Remove"

	userID, found, err := s.repo.DeleteSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if found {
		s.invalidate(ctx, op, userID)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, op, userID string) {
	key := services.SubscriptionsKey(userID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.cacheFailure(op, key, err)
	}
}

func (s *Service) cacheFailure(op, key string, err error) {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	s.log.Warn("cache failure", sl.Op(op), slog.String("key", key), sl.Err(err))
}
