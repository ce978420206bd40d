// Package user содержит бизнес-логику профилей: чтение, обновление,
// вход по паролю с выдачей сессионного токена и поиск по Telegram-чату.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/lib/jwt"
	"github.com/magabrotheeeer/spesesmart/internal/lib/metrics"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services"
)

// Repository определяет методы хранилища пользователей.
type Repository interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByChatID(ctx context.Context, chatID string) (models.User, error)
	UpsertUser(ctx context.Context, u models.User) error
}

// Service реализует операции над профилями.
type Service struct {
	repo     Repository
	cache    services.Cache
	ttl      time.Duration
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// New создаёт сервис пользователей.
func New(repo Repository, cache services.Cache, ttl time.Duration, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	if cache == nil {
		cache = services.NopCache{}
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		ttl:      ttl,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Get возвращает пользователя по id. Отсутствие — models.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	const op = "services.user.Get"

	key := services.UserKey(id)
	var cached models.User
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.cacheFailure(op, key, err)
	}
	if found {
		return cached, nil
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, u, s.ttl); err != nil {
		s.cacheFailure(op, key, err)
	}
	return u, nil
}

// GetByChatID возвращает пользователя, привязавшего Telegram-чат.
func (s *Service) GetByChatID(ctx context.Context, chatID string) (models.User, error) {
	const op = "services.user.GetByChatID"

	u, err := s.repo.GetUserByChatID(ctx, strings.TrimSpace(chatID))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Update заменяет профиль пользователя id. Неуказанные пароль и чат
// сохраняются из текущей версии профиля.
func (s *Service) Update(ctx context.Context, id string, dto models.UserDTO) (models.User, error) {
	const op = "services.user.Update"

	dto.ID = id
	u := dto.Sanitize()

	current, err := s.repo.GetUser(ctx, id)
	switch {
	case err == nil:
		if dto.Password == nil || *dto.Password == "" {
			u.Password = current.Password
		}
		if dto.TelegramChatID == nil {
			u.TelegramChatID = current.TelegramChatID
		}
	case errors.Is(err, models.ErrNotFound):
	default:
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.UpsertUser(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user updated", slog.String("user_id", id))

	key := services.UserKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.cacheFailure(op, key, err)
	}
	return u, nil
}

// Login сверяет пароль и выдаёт сессионный токен.
func (s *Service) Login(ctx context.Context, id, password string) (string, models.User, error) {
	const op = "services.user.Login"

	u, err := s.repo.GetUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return "", models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !u.CheckPassword(password) {
		return "", models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	token, err := s.jwtMaker.GenerateToken(u.ID)
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return token, u, nil
}

func (s *Service) cacheFailure(op, key string, err error) {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	s.log.Warn("cache failure", sl.Op(op), slog.String("key", key), sl.Err(err))
}
