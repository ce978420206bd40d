// Package report строит текстовый отчёт за скользящее окно для бота и API.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/lib/currency"
	"github.com/magabrotheeeer/spesesmart/internal/lib/period"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services/stats"
)

// UserReader возвращает профиль пользователя.
type UserReader interface {
	Get(ctx context.Context, id string) (models.User, error)
}

// TransactionReader возвращает транзакции пользователя начиная с момента since.
type TransactionReader interface {
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error)
}

// Builder собирает отчёты.
type Builder struct {
	users UserReader
	txs   TransactionReader
}

// New создаёт Builder.
func New(users UserReader, txs TransactionReader) *Builder {
	return &Builder{users: users, txs: txs}
}

// Build возвращает отчёт пользователя за окно p, заканчивающееся в now.
// Суммы пересчитываются в валюту пользователя, подписи — на его языке.
func (b *Builder) Build(ctx context.Context, userID string, p models.Period, now time.Time) (string, error) {
	const op = "services.report.Build"

	u, err := b.users.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	from := period.RollingStart(p, now)
	txs, err := b.txs.ListSince(ctx, userID, from)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	txs = stats.Since(txs, from)

	totals := stats.Compute(txs, u.Preferences.Currency)
	return Format(Title(p, u.Preferences.Language), totals), nil
}

// Format рендерит итоги в Markdown-текст отчёта.
func Format(title string, t stats.Totals) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *Report (%s)*\n\n", title)
	fmt.Fprintf(&sb, "🟢 +%s\n", currency.Format(t.Income, t.Currency))
	fmt.Fprintf(&sb, "🔴 -%s\n", currency.Format(t.Expense, t.Currency))
	fmt.Fprintf(&sb, "💰 = %s", currency.Format(t.Balance, t.Currency))
	return sb.String()
}

var titles = map[models.Language]map[models.Period]string{
	models.LangIT: {
		models.PeriodDaily:   "Oggi",
		models.PeriodWeekly:  "Settimana",
		models.PeriodMonthly: "Mese",
		models.PeriodYearly:  "Anno",
		models.PeriodAll:     "Tutto",
	},
	models.LangEN: {
		models.PeriodDaily:   "Today",
		models.PeriodWeekly:  "Week",
		models.PeriodMonthly: "Month",
		models.PeriodYearly:  "Year",
		models.PeriodAll:     "All time",
	},
	models.LangPL: {
		models.PeriodDaily:   "Dziś",
		models.PeriodWeekly:  "Tydzień",
		models.PeriodMonthly: "Miesiąc",
		models.PeriodYearly:  "Rok",
		models.PeriodAll:     "Wszystko",
	},
}

// Title возвращает название окна на языке lang. Неизвестный период считается неделей.
func Title(p models.Period, lang models.Language) string {
	byPeriod, ok := titles[lang]
	if !ok {
		byPeriod = titles[models.LangIT]
	}
	if t, ok := byPeriod[p]; ok {
		return t
	}
	return byPeriod[models.PeriodWeekly]
}
