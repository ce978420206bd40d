// Package gateway — слой хранения клиента: сначала удалённый REST API,
// при мягком отказе локальный кеш. Запись всегда сначала идёт в кеш,
// сервер обновляется по возможности. Неподтверждённые сервером правки
// и удаления досылаются при следующем успешном чтении.
package gateway

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

const (
	metaToken = "session_token"
	metaUser  = "session_user"

	// maxCatchUp ограничивает число списаний одной подписки за одно обновление.
	maxCatchUp = 36
)

// RemoteAPI — удалённый сервер. Все ошибки мягкого отказа оборачивают ErrUnavailable.
type RemoteAPI interface {
	ListTransactions(ctx context.Context, userID string) ([]models.TransactionDTO, error)
	CreateTransaction(ctx context.Context, tx models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (models.UserDTO, error)
	UpdateUser(ctx context.Context, token string, u models.User) error
	Login(ctx context.Context, userID, password string) (string, models.UserDTO, error)
	ListSubscriptions(ctx context.Context, userID string) ([]models.SubscriptionDTO, error)
	CreateSubscription(ctx context.Context, s models.Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
}

// LocalStore — локальный кеш.
type LocalStore interface {
	Transactions(ctx context.Context, userID string) ([]models.TransactionDTO, error)
	ReplaceTransactions(ctx context.Context, userID string, txs []models.Transaction) error
	PutTransaction(ctx context.Context, tx models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	PendingTransactions(ctx context.Context, userID string) (unsynced, deleted []string, err error)
	MarkTransactionSynced(ctx context.Context, tx models.Transaction) error
	ForgetDeletedTransaction(ctx context.Context, id string) error

	Users(ctx context.Context) ([]models.UserDTO, error)
	User(ctx context.Context, id string) (models.UserDTO, bool, error)
	PutUser(ctx context.Context, u models.User) error
	CacheUser(ctx context.Context, u models.User) error
	UserPending(ctx context.Context, id string) (bool, error)
	MarkUserSynced(ctx context.Context, u models.User) error

	Subscriptions(ctx context.Context, userID string) ([]models.SubscriptionDTO, error)
	ReplaceSubscriptions(ctx context.Context, userID string, subs []models.Subscription) error
	PutSubscription(ctx context.Context, s models.Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
	PendingSubscriptions(ctx context.Context, userID string) (unsynced, deleted []string, err error)
	MarkSubscriptionSynced(ctx context.Context, s models.Subscription) error
	ForgetDeletedSubscription(ctx context.Context, id string) error

	Meta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Gateway объединяет сервер и локальный кеш.
type Gateway struct {
	remote RemoteAPI
	local  LocalStore
	repl   Replicator
	log    *slog.Logger
	now    func() time.Time
}

// New создаёт Gateway. Если repl == nil, запись на сервер выполняется синхронно.
func New(remote RemoteAPI, local LocalStore, repl Replicator, log *slog.Logger) *Gateway {
	if repl == nil {
		repl = InlineReplicator{Log: log}
	}
	return &Gateway{remote: remote, local: local, repl: repl, log: log, now: time.Now}
}

func (g *Gateway) soft(op string, err error) {
	g.log.Warn("remote unavailable, using local cache", sl.Op(op), sl.Err(err))
}

// gone сообщает, что удаление на сервере состоялось: успех или 404.
func gone(err error) bool {
	var statusErr *StatusError
	return err == nil || (errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound)
}

// ListTransactions возвращает транзакции пользователя, новые сверху.
func (g *Gateway) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	const op = "gateway.ListTransactions"

	local, err := g.localTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	unsynced, deleted, err := g.local.PendingTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dtos, err := g.remote.ListTransactions(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		g.soft(op, err)
		return sortByDate(local), nil
	}

	pending := NewPending(unsynced, deleted)
	merged := Reconcile(g.sanitizeTransactions(op, dtos, userID), local, pending)
	if err := g.local.ReplaceTransactions(ctx, userID, merged); err != nil {
		g.log.Error("failed to persist merged transactions", sl.Op(op), sl.Err(err))
	}
	g.resendTransactions(ctx, merged, pending)

	// Перечитываем кеш: за время запроса могли появиться новые локальные записи.
	fresh, err := g.localTransactions(ctx, userID)
	if err != nil {
		g.log.Error("failed to reload transactions", sl.Op(op), sl.Err(err))
		return sortByDate(merged), nil
	}
	return sortByDate(fresh), nil
}

// resendTransactions досылает на сервер неподтверждённые записи и удаления.
func (g *Gateway) resendTransactions(ctx context.Context, merged []models.Transaction, p Pending) {
	if p.Empty() {
		return
	}
	for _, tx := range merged {
		if p.unsynced(tx.ID) {
			g.replicateTransaction(ctx, "gateway.resendTransactions", tx)
		}
	}
	for id := range p.Deleted {
		g.replicateTransactionDelete(ctx, "gateway.resendTransactions", id)
	}
}

func (g *Gateway) localTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	dtos, err := g.local.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.sanitizeTransactions("gateway.localTransactions", dtos, userID), nil
}

// sanitizeTransactions нормализует DTO и отбрасывает чужие и повреждённые записи.
func (g *Gateway) sanitizeTransactions(op string, dtos []models.TransactionDTO, userID string) []models.Transaction {
	now := g.now()
	out := make([]models.Transaction, 0, len(dtos))
	for _, d := range dtos {
		if d.UserID != userID {
			continue
		}
		t, err := d.Sanitize(now)
		if err != nil {
			g.log.Warn("skip malformed transaction", sl.Op(op), slog.String("id", d.ID), sl.Err(err))
			continue
		}
		out = append(out, t)
	}
	return out
}

func sortByDate(txs []models.Transaction) []models.Transaction {
	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	return txs
}

// CreateTransaction нормализует и сохраняет транзакцию. Без id генерируется новый,
// существующий id перезаписывается.
func (g *Gateway) CreateTransaction(ctx context.Context, dto models.TransactionDTO) (models.Transaction, error) {
	const op = "gateway.CreateTransaction"

	tx, err := dto.Sanitize(g.now())
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w: %v", op, models.ErrInvalidInput, err)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := g.saveTransaction(ctx, tx); err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	return tx, nil
}

func (g *Gateway) saveTransaction(ctx context.Context, tx models.Transaction) error {
	if err := g.local.PutTransaction(ctx, tx); err != nil {
		return err
	}
	g.replicateTransaction(ctx, "gateway.CreateTransaction", tx)
	return nil
}

func (g *Gateway) replicateTransaction(ctx context.Context, op string, tx models.Transaction) {
	g.repl.Replicate(ctx, op, func(ctx context.Context) error {
		if err := g.remote.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		return g.local.MarkTransactionSynced(ctx, tx)
	})
}

func (g *Gateway) replicateTransactionDelete(ctx context.Context, op, id string) {
	g.repl.Replicate(ctx, op, func(ctx context.Context) error {
		if err := g.remote.DeleteTransaction(ctx, id); !gone(err) {
			return err
		}
		return g.local.ForgetDeletedTransaction(ctx, id)
	})
}

// DeleteTransaction удаляет транзакцию. Удаление несуществующего id не ошибка.
func (g *Gateway) DeleteTransaction(ctx context.Context, id string) error {
	const op = "gateway.DeleteTransaction"

	if err := g.local.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	g.replicateTransactionDelete(ctx, op, id)
	return nil
}

// GetUser возвращает профиль: сервер, затем кеш, затем начальные данные.
// Неподтверждённая локальная правка профиля перекрывает серверную копию.
func (g *Gateway) GetUser(ctx context.Context, id string) (models.User, error) {
	const op = "gateway.GetUser"

	dto, err := g.remote.GetUser(ctx, id)
	if err == nil {
		return g.adoptUser(ctx, op, dto.Sanitize(), g.token(ctx, op)), nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	g.soft(op, err)

	u, err := g.cachedUser(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// adoptUser кеширует серверную копию профиля. Если локально есть неподтверждённая
// правка, возвращается она и повторно отправляется на сервер с token.
func (g *Gateway) adoptUser(ctx context.Context, op string, remote models.User, token string) models.User {
	if err := g.local.CacheUser(ctx, remote); err != nil {
		g.log.Error("failed to cache user", sl.Op(op), sl.Err(err))
		return remote
	}
	pending, err := g.local.UserPending(ctx, remote.ID)
	if err != nil {
		g.log.Error("failed to check pending profile", sl.Op(op), sl.Err(err))
		return remote
	}
	if !pending {
		return remote
	}
	dto, ok, err := g.local.User(ctx, remote.ID)
	if err != nil || !ok {
		return remote
	}
	u := dto.Sanitize()
	g.replicateUser(ctx, op, token, u)
	return u
}

func (g *Gateway) replicateUser(ctx context.Context, op, token string, u models.User) {
	g.repl.Replicate(ctx, op, func(ctx context.Context) error {
		if err := g.remote.UpdateUser(ctx, token, u); err != nil {
			return err
		}
		return g.local.MarkUserSynced(ctx, u)
	})
}

func (g *Gateway) token(ctx context.Context, op string) string {
	token, err := g.local.Meta(ctx, metaToken)
	if err != nil {
		g.log.Warn("failed to read session token", sl.Op(op), sl.Err(err))
	}
	return token
}

func (g *Gateway) cachedUser(ctx context.Context, id string) (models.User, error) {
	dto, ok, err := g.local.User(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if ok {
		return dto.Sanitize(), nil
	}
	for _, u := range models.SeedUsers() {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

// Users возвращает известных клиенту пользователей: кеш, дополненный начальными данными.
func (g *Gateway) Users(ctx context.Context) ([]models.User, error) {
	const op = "gateway.Users"

	dtos, err := g.local.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	seen := make(map[string]struct{}, len(dtos))
	out := make([]models.User, 0, len(dtos)+2)
	for _, d := range dtos {
		u := d.Sanitize()
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	for _, u := range models.SeedUsers() {
		if _, ok := seen[u.ID]; !ok {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// UpdateUser сохраняет профиль. Пароль и привязка чата, не переданные в dto, сохраняются.
func (g *Gateway) UpdateUser(ctx context.Context, id string, dto models.UserDTO) (models.User, error) {
	const op = "gateway.UpdateUser"

	current, err := g.cachedUser(ctx, id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	dto.ID = id
	u := dto.Sanitize()
	if dto.Password == nil || *dto.Password == "" {
		if current.Password != "" {
			u.Password = current.Password
		}
	}
	if dto.TelegramChatID == nil {
		u.TelegramChatID = current.TelegramChatID
	}

	if err := g.local.PutUser(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	g.replicateUser(ctx, op, g.token(ctx, op), u)
	return u, nil
}

// Login проверяет пароль на сервере, а при его недоступности — по кешу.
// Несовпадение пароля — models.ErrInvalidCredentials.
func (g *Gateway) Login(ctx context.Context, id, password string) (models.User, error) {
	const op = "gateway.Login"

	token, dto, err := g.remote.Login(ctx, id, password)
	var statusErr *StatusError
	switch {
	case err == nil:
		u := dto.Sanitize()
		if err := g.startSession(ctx, u.ID, token); err != nil {
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		return g.adoptUser(ctx, op, u, token), nil
	case errors.As(err, &statusErr) && statusErr.Code == 401:
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	case !errors.Is(err, ErrUnavailable):
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	g.soft(op, err)

	u, err := g.cachedUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !u.CheckPassword(password) {
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err := g.startSession(ctx, u.ID, ""); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (g *Gateway) startSession(ctx context.Context, userID, token string) error {
	if err := g.local.SetMeta(ctx, metaUser, userID); err != nil {
		return err
	}
	return g.local.SetMeta(ctx, metaToken, token)
}

// Session возвращает id вошедшего пользователя или models.ErrNotFound.
func (g *Gateway) Session(ctx context.Context) (string, error) {
	const op = "gateway.Session"

	id, err := g.local.Meta(ctx, metaUser)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if id == "" {
		return "", fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return id, nil
}

// Logout завершает сессию.
func (g *Gateway) Logout(ctx context.Context) error {
	const op = "gateway.Logout"

	if err := g.startSession(ctx, "", ""); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptions возвращает подписки пользователя: сервер, объединённый
// с неподтверждёнными локальными правками, при отказе кеш.
func (g *Gateway) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "gateway.ListSubscriptions"

	local, err := g.localSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	unsynced, deleted, err := g.local.PendingSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dtos, err := g.remote.ListSubscriptions(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		g.soft(op, err)
		return local, nil
	}

	pending := NewPending(unsynced, deleted)
	merged := ReconcileSubscriptions(g.sanitizeSubscriptions(op, dtos, userID), local, pending)
	if err := g.local.ReplaceSubscriptions(ctx, userID, merged); err != nil {
		g.log.Error("failed to persist subscriptions", sl.Op(op), sl.Err(err))
	}
	g.resendSubscriptions(ctx, merged, pending)

	fresh, err := g.localSubscriptions(ctx, userID)
	if err != nil {
		g.log.Error("failed to reload subscriptions", sl.Op(op), sl.Err(err))
		return merged, nil
	}
	return fresh, nil
}

func (g *Gateway) localSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	dtos, err := g.local.Subscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.sanitizeSubscriptions("gateway.localSubscriptions", dtos, userID), nil
}

func (g *Gateway) resendSubscriptions(ctx context.Context, merged []models.Subscription, p Pending) {
	if p.Empty() {
		return
	}
	for _, s := range merged {
		if p.unsynced(s.ID) {
			g.replicateSubscription(ctx, "gateway.resendSubscriptions", s)
		}
	}
	for id := range p.Deleted {
		g.replicateSubscriptionDelete(ctx, "gateway.resendSubscriptions", id)
	}
}

func (g *Gateway) sanitizeSubscriptions(op string, dtos []models.SubscriptionDTO, userID string) []models.Subscription {
	out := make([]models.Subscription, 0, len(dtos))
	for _, d := range dtos {
		if d.UserID != userID {
			continue
		}
		s, err := d.Sanitize()
		if err != nil {
			g.log.Warn("skip malformed subscription", sl.Op(op), slog.String("id", d.ID), sl.Err(err))
			continue
		}
		out = append(out, s)
	}
	return out
}

// CreateSubscription сохраняет подписку.
func (g *Gateway) CreateSubscription(ctx context.Context, dto models.SubscriptionDTO) (models.Subscription, error) {
	const op = "gateway.CreateSubscription"

	s, err := dto.Sanitize()
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w: %v", op, models.ErrInvalidInput, err)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := g.saveSubscription(ctx, s); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (g *Gateway) saveSubscription(ctx context.Context, s models.Subscription) error {
	if err := g.local.PutSubscription(ctx, s); err != nil {
		return err
	}
	g.replicateSubscription(ctx, "gateway.CreateSubscription", s)
	return nil
}

func (g *Gateway) replicateSubscription(ctx context.Context, op string, s models.Subscription) {
	g.repl.Replicate(ctx, op, func(ctx context.Context) error {
		if err := g.remote.CreateSubscription(ctx, s); err != nil {
			return err
		}
		return g.local.MarkSubscriptionSynced(ctx, s)
	})
}

func (g *Gateway) replicateSubscriptionDelete(ctx context.Context, op, id string) {
	g.repl.Replicate(ctx, op, func(ctx context.Context) error {
		if err := g.remote.DeleteSubscription(ctx, id); !gone(err) {
			return err
		}
		return g.local.ForgetDeletedSubscription(ctx, id)
	})
}

// DeleteSubscription удаляет подписку.
func (g *Gateway) DeleteSubscription(ctx context.Context, id string) error {
	const op = "gateway.DeleteSubscription"

	if err := g.local.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	g.replicateSubscriptionDelete(ctx, op, id)
	return nil
}

// Refresh материализует наступившие списания подписок и возвращает свежий список транзакций.
// Идентификаторы списаний детерминированы, поэтому повтор на сервере или в другом клиенте
// не создаёт дубликатов.
func (g *Gateway) Refresh(ctx context.Context, userID string) ([]models.Transaction, error) {
	const op = "gateway.Refresh"

	subs, err := g.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := g.now()
	for _, sub := range subs {
		changed := false
		for range maxCatchUp {
			tx, next, ok := sub.Charge(now)
			if !ok {
				break
			}
			if err := g.saveTransaction(ctx, tx); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			sub, changed = next, true
		}
		if changed {
			if err := g.saveSubscription(ctx, sub); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	return g.ListTransactions(ctx, userID)
}
