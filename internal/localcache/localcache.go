// Package localcache — локальный кеш клиента в файле SQLite. Коллекции хранятся
// плоско: (id, user_id, data JSON, dirty). Записи отдаются как DTO и нормализуются вызывающим.
//
// Put* — локальная правка: запись помечается несинхронизированной, пока сервер её
// не подтвердит (Mark*Synced). Delete* оставляет отметку об удалении до ForgetDeleted*.
// Replace* и CacheUser применяют снимок сервера и не затирают неподтверждённые правки.
package localcache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	tableTransactions  = "transactions"
	tableUsers         = "users"
	tableSubscriptions = "subscriptions"
)

// Store — локальный кеш.
type Store struct {
	db *sql.DB
}

// Open открывает (или создаёт) файл кеша и применяет схему.
func Open(path string) (*Store, error) {
	const op = "localcache.Open"

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close закрывает файл кеша.
func (s *Store) Close() error {
	return s.db.Close()
}

// Transactions возвращает закешированные транзакции пользователя.
func (s *Store) Transactions(ctx context.Context, userID string) ([]models.TransactionDTO, error) {
	return list[models.TransactionDTO](ctx, s.db, tableTransactions, userID)
}

// ReplaceTransactions применяет серверный снимок транзакций пользователя, не трогая
// чужие записи и неподтверждённые локальные правки.
func (s *Store) ReplaceTransactions(ctx context.Context, userID string, txs []models.Transaction) error {
	rows := make([]row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, row{id: tx.ID, userID: tx.UserID, value: tx})
	}
	return replace(ctx, s.db, tableTransactions, userID, rows)
}

// PutTransaction добавляет или заменяет транзакцию.
func (s *Store) PutTransaction(ctx context.Context, tx models.Transaction) error {
	return put(ctx, s.db, tableTransactions, row{id: tx.ID, userID: tx.UserID, value: tx})
}

// DeleteTransaction удаляет транзакцию. Отсутствие записи ошибкой не считается.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return remove(ctx, s.db, tableTransactions, id)
}

// PendingTransactions возвращает id транзакций пользователя, ещё не подтверждённых
// сервером, и id удалённых локально.
func (s *Store) PendingTransactions(ctx context.Context, userID string) (unsynced, deleted []string, err error) {
	return pending(ctx, s.db, tableTransactions, userID)
}

// MarkTransactionSynced отмечает, что сервер принял tx. Если запись с тех пор
// изменилась, пометка остаётся.
func (s *Store) MarkTransactionSynced(ctx context.Context, tx models.Transaction) error {
	return markSynced(ctx, s.db, tableTransactions, row{id: tx.ID, userID: tx.UserID, value: tx})
}

// ForgetDeletedTransaction снимает отметку об удалении после подтверждения сервером.
func (s *Store) ForgetDeletedTransaction(ctx context.Context, id string) error {
	return forgetDeleted(ctx, s.db, tableTransactions, id)
}

// Users возвращает всех закешированных пользователей.
func (s *Store) Users(ctx context.Context) ([]models.UserDTO, error) {
	return list[models.UserDTO](ctx, s.db, tableUsers, "")
}

// User возвращает пользователя по id.
func (s *Store) User(ctx context.Context, id string) (models.UserDTO, bool, error) {
	const op = "localcache.User"

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM users WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserDTO{}, false, nil
	}
	if err != nil {
		return models.UserDTO{}, false, fmt.Errorf("%s: %w", op, err)
	}
	var u models.UserDTO
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return models.UserDTO{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// PutUser сохраняет локальную правку профиля.
func (s *Store) PutUser(ctx context.Context, u models.User) error {
	return put(ctx, s.db, tableUsers, row{id: u.ID, userID: u.ID, value: u})
}

// CacheUser сохраняет серверную копию профиля, если локальной неподтверждённой правки нет.
func (s *Store) CacheUser(ctx context.Context, u models.User) error {
	if err := upsertSnapshot(ctx, s.db, tableUsers, row{id: u.ID, userID: u.ID, value: u}); err != nil {
		return fmt.Errorf("localcache.CacheUser: %w", err)
	}
	return nil
}

// UserPending сообщает, есть ли у профиля неподтверждённая сервером правка.
func (s *Store) UserPending(ctx context.Context, id string) (bool, error) {
	unsynced, _, err := pending(ctx, s.db, tableUsers, id)
	if err != nil {
		return false, err
	}
	return len(unsynced) > 0, nil
}

// MarkUserSynced отмечает, что сервер принял профиль u.
func (s *Store) MarkUserSynced(ctx context.Context, u models.User) error {
	return markSynced(ctx, s.db, tableUsers, row{id: u.ID, userID: u.ID, value: u})
}

// Subscriptions возвращает закешированные подписки пользователя.
func (s *Store) Subscriptions(ctx context.Context, userID string) ([]models.SubscriptionDTO, error) {
	return list[models.SubscriptionDTO](ctx, s.db, tableSubscriptions, userID)
}

// ReplaceSubscriptions применяет серверный снимок подписок пользователя.
func (s *Store) ReplaceSubscriptions(ctx context.Context, userID string, subs []models.Subscription) error {
	rows := make([]row, 0, len(subs))
	for _, sub := range subs {
		rows = append(rows, row{id: sub.ID, userID: sub.UserID, value: sub})
	}
	return replace(ctx, s.db, tableSubscriptions, userID, rows)
}

// PutSubscription добавляет или заменяет подписку.
func (s *Store) PutSubscription(ctx context.Context, sub models.Subscription) error {
	return put(ctx, s.db, tableSubscriptions, row{id: sub.ID, userID: sub.UserID, value: sub})
}

// DeleteSubscription удаляет подписку.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	return remove(ctx, s.db, tableSubscriptions, id)
}

// PendingSubscriptions — то же, что PendingTransactions, для подписок.
func (s *Store) PendingSubscriptions(ctx context.Context, userID string) (unsynced, deleted []string, err error) {
	return pending(ctx, s.db, tableSubscriptions, userID)
}

func (s *Store) MarkSubscriptionSynced(ctx context.Context, sub models.Subscription) error {
	return markSynced(ctx, s.db, tableSubscriptions, row{id: sub.ID, userID: sub.UserID, value: sub})
}

func (s *Store) ForgetDeletedSubscription(ctx context.Context, id string) error {
	return forgetDeleted(ctx, s.db, tableSubscriptions, id)
}

// Meta читает служебное значение (например, токен сессии). Пустая строка — значения нет.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	const op = "localcache.Meta"

	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// SetMeta сохраняет служебное значение. Пустое значение удаляет ключ.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	const op = "localcache.SetMeta"

	var err error
	if value == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, key)
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
