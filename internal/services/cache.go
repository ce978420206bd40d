// Package services содержит общие для сервисов контракты: кеш и ключи кеша.
// Бизнес-логика разложена по подпакетам transaction, user, subscription,
// stats, report и scheduler.
package services

import (
	"context"
	"time"
)

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значения из кеша по ключам.
	Invalidate(ctx context.Context, keys ...string) error
}

// NopCache — кеш, который ничего не хранит. Используется, когда Redis не настроен.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) Invalidate(context.Context, ...string) error { return nil }

// TransactionsKey — ключ списка транзакций пользователя.
func TransactionsKey(userID string) string { return "cache:transactions:" + userID }

// SubscriptionsKey — ключ списка подписок пользователя.
func SubscriptionsKey(userID string) string { return "cache:subscriptions:" + userID }

// UserKey — ключ профиля пользователя.
func UserKey(userID string) string { return "cache:user:" + userID }
