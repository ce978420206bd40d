package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services"
)

// PendingStore хранит не более одной транзакции на чат, ожидающей выбора способа оплаты.
// Set перезаписывает предыдущую запись.
type PendingStore interface {
	Get(ctx context.Context, chatID string) (models.Transaction, bool, error)
	Set(ctx context.Context, chatID string, tx models.Transaction) error
	Clear(ctx context.Context, chatID string) error
}

type pendingEntry struct {
	tx      models.Transaction
	expires time.Time
}

// MemoryPending — PendingStore в памяти процесса. Записи теряются при перезапуске.
type MemoryPending struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]pendingEntry
}

// NewMemoryPending создаёт хранилище с временем жизни записи ttl (0 — без ограничения).
func NewMemoryPending(ttl time.Duration) *MemoryPending {
	return &MemoryPending{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]pendingEntry),
	}
}

func (m *MemoryPending) Get(_ context.Context, chatID string) (models.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[chatID]
	if !ok {
		return models.Transaction{}, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, chatID)
		return models.Transaction{}, false, nil
	}
	return e.tx, true, nil
}

func (m *MemoryPending) Set(_ context.Context, chatID string, tx models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := pendingEntry{tx: tx}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[chatID] = e
	return nil
}

func (m *MemoryPending) Clear(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, chatID)
	return nil
}

// CachePending хранит ожидающие транзакции в общем кеше (Redis),
// поэтому они переживают перезапуск бота.
type CachePending struct {
	cache services.Cache
	ttl   time.Duration
}

// NewCachePending создаёт PendingStore поверх кеша.
func NewCachePending(cache services.Cache, ttl time.Duration) *CachePending {
	return &CachePending{cache: cache, ttl: ttl}
}

func pendingKey(chatID string) string { return "bot:pending:" + chatID }

func (c *CachePending) Get(ctx context.Context, chatID string) (models.Transaction, bool, error) {
	const op = "bot.CachePending.Get"

	var tx models.Transaction
	found, err := c.cache.Get(ctx, pendingKey(chatID), &tx)
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return tx, found, nil
}

func (c *CachePending) Set(ctx context.Context, chatID string, tx models.Transaction) error {
	const op = "bot.CachePending.Set"

	if err := c.cache.Set(ctx, pendingKey(chatID), tx, c.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *CachePending) Clear(ctx context.Context, chatID string) error {
	const op = "bot.CachePending.Clear"

	if err := c.cache.Invalidate(ctx, pendingKey(chatID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
