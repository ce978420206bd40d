// Package transaction содержит бизнес-логику работы с транзакциями:
// нормализацию входных данных, сохранение и кеширование списков.
package transaction

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

// Repository определяет методы хранилища транзакций.
type Repository interface {
	UpsertTransaction(ctx context.Context, tx models.Transaction) error
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) (userID string, found bool, err error)
}

// Service реализует операции над транзакциями с кешированием списков.
type Service struct {
	repo  Repository
	cache services.Cache
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// New создаёт сервис транзакций.
func New(repo Repository, cache services.Cache, ttl time.Duration, log *slog.Logger) *Service {
	if cache == nil {
		cache = services.NopCache{}
	}
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

// List возвращает транзакции пользователя, сначала пытаясь прочитать кеш.
func (s *Service) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	const op = "services.transaction.List"

	key := services.TransactionsKey(userID)
	var cached []models.Transaction
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.cacheFailure(op, key, err)
	}
	if found {
		return cached, nil
	}

	list, err := s.repo.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, list, s.ttl); err != nil {
		s.cacheFailure(op, key, err)
	}
	return list, nil
}

// ListSince возвращает транзакции пользователя начиная с since. Кеш не используется.
func (s *Service) ListSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	const op = "services.transaction.ListSince"

	list, err := s.repo.ListTransactionsSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Create нормализует DTO и сохраняет транзакцию. Без id генерируется новый,
// с существующим id запись перезаписывается.
func (s *Service) Create(ctx context.Context, dto models.TransactionDTO, source string) (models.Transaction, error) {
	const op = "services.transaction.Create"

	tx, err := dto.Sanitize(s.now())
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w: %w", op, models.ErrInvalidInput, err)
	}
	return s.Save(ctx, tx, source)
}

// Save сохраняет уже нормализованную транзакцию.
func (s *Service) Save(ctx context.Context, tx models.Transaction, source string) (models.Transaction, error) {
	const op = "services.transaction.Save"

	if tx.UserID == "" {
		return models.Transaction{}, fmt.Errorf("%s: %w: empty user id", op, models.ErrInvalidInput)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := s.repo.UpsertTransaction(ctx, tx); err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.TransactionsCreated.WithLabelValues(source).Inc()
	s.log.Info("transaction saved",
		slog.String("id", tx.ID),
		slog.String("user_id", tx.UserID),
		slog.String("source", source),
	)

	s.invalidate(ctx, op, tx.UserID)
	return tx, nil
}

// Remove удаляет транзакцию. Неизвестный id ошибкой не считается.
func (s *Service) Remove(ctx context.Context, id string) error {
	const op = "services.transaction.Remove"

	userID, found, err := s.repo.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		s.log.Debug("transaction already absent", slog.String("id", id))
		return nil
	}
	s.invalidate(ctx, op, userID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, op, userID string) {
	key := services.TransactionsKey(userID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.cacheFailure(op, key, err)
	}
}

func (s *Service) cacheFailure(op, key string, err error) {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	s.log.Warn("cache failure", sl.Op(op), slog.String("key", key), sl.Err(err))
}

