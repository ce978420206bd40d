// Package metrics объявляет прикладные счётчики Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsCreated — число сохранённых транзакций по источнику (api, bot, scheduler).
	TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spesesmart",
		Name:      "transactions_created_total",
		Help:      "Number of stored transactions by source.",
	}, []string{"source"})

	// BotIntents — число классифицированных сообщений бота по намерению.
	BotIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spesesmart",
		Name:      "bot_intents_total",
		Help:      "Number of bot messages by classified intent.",
	}, []string{"intent"})

	// SubscriptionsCharged — число материализованных списаний подписок.
	SubscriptionsCharged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spesesmart",
		Name:      "subscriptions_charged_total",
		Help:      "Number of subscription charges materialized into transactions.",
	})

	// CacheErrors — ошибки кеша, не прерывающие обработку запроса.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spesesmart",
		Name:      "cache_errors_total",
		Help:      "Number of tolerated cache failures by operation.",
	}, []string{"op"})
)
