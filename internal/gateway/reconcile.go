package gateway

import "github.com/magabrotheeeer/spesesmart/internal/models"

// Pending — локальные изменения, которые сервер ещё не подтвердил.
type Pending struct {
	Unsynced map[string]struct{}
	Deleted  map[string]struct{}
}

// NewPending собирает Pending из списков id.
func NewPending(unsynced, deleted []string) Pending {
	p := Pending{
		Unsynced: make(map[string]struct{}, len(unsynced)),
		Deleted:  make(map[string]struct{}, len(deleted)),
	}
	for _, id := range unsynced {
		p.Unsynced[id] = struct{}{}
	}
	for _, id := range deleted {
		p.Deleted[id] = struct{}{}
	}
	return p
}

func (p Pending) unsynced(id string) bool {
	_, ok := p.Unsynced[id]
	return ok
}

func (p Pending) deleted(id string) bool {
	_, ok := p.Deleted[id]
	return ok
}

// Empty сообщает, что подтверждать нечего.
func (p Pending) Empty() bool {
	return len(p.Unsynced) == 0 && len(p.Deleted) == 0
}

// Reconcile объединяет серверный и локальный снимки транзакций одного пользователя.
//
// Подтверждённые записи берутся с сервера; подтверждённая локальная запись, которой
// на сервере нет, считается удалённой там. Несинхронизированная локальная версия
// перекрывает серверную, а если на сервере её нет, добавляется в результат.
// Удалённые локально id отбрасываются, даже если сервер их ещё возвращает.
//
// Для способа оплаты действует особое правило: если локальная копия с тем же id
// оплачена наличными (CASH), а сервер хранит другой способ, в результате остаётся
// CASH. Обратное не действует: локальная CARD не перекрывает серверный CASH.
func Reconcile(remote, local []models.Transaction, p Pending) []models.Transaction {
	cash := make(map[string]struct{}, len(local))
	for _, t := range local {
		if t.PaymentMethod == models.PaymentCash {
			cash[t.ID] = struct{}{}
		}
	}

	out := merge(remote, local, transactionID, p)
	for i := range out {
		if _, ok := cash[out[i].ID]; ok {
			out[i].PaymentMethod = models.PaymentCash
		}
	}
	return out
}

// ReconcileSubscriptions объединяет снимки подписок по тем же правилам членства,
// что и Reconcile.
func ReconcileSubscriptions(remote, local []models.Subscription, p Pending) []models.Subscription {
	return merge(remote, local, subscriptionID, p)
}

func transactionID(t models.Transaction) string { return t.ID }

func subscriptionID(s models.Subscription) string { return s.ID }

func merge[T any](remote, local []T, key func(T) string, p Pending) []T {
	mine := make(map[string]T, len(p.Unsynced))
	for _, v := range local {
		if p.unsynced(key(v)) {
			mine[key(v)] = v
		}
	}

	out := make([]T, 0, len(remote)+len(mine))
	seen := make(map[string]struct{}, len(remote))
	for _, v := range remote {
		k := key(v)
		if _, dup := seen[k]; dup || p.deleted(k) {
			continue
		}
		seen[k] = struct{}{}
		if l, ok := mine[k]; ok {
			v = l
		}
		out = append(out, v)
	}
	for _, v := range local {
		k := key(v)
		if _, ok := mine[k]; !ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
