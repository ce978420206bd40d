// Package stats реализует чистые функции агрегирования транзакций:
// отбор по календарному периоду, итоги в базовой валюте и разбивки
// по категориям и способам оплаты.
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/spesesmart/internal/lib/currency"
	"github.com/magabrotheeeer/spesesmart/internal/lib/period"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Totals — итоги по набору транзакций в одной валюте.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Balance  decimal.Decimal `json:"balance"`
	Currency models.Currency `json:"currency"`
}

// Bucket — сумма по одному ключу разбивки.
type Bucket struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// FilterByPeriod возвращает транзакции, попадающие в календарный период p,
// содержащий момент ref. Для ALL возвращается исходный срез.
func FilterByPeriod(txs []models.Transaction, p models.Period, ref time.Time) []models.Transaction {
	if p == models.PeriodAll {
		return txs
	}
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if period.Contains(p, tx.Date, ref) {
			out = append(out, tx)
		}
	}
	return out
}

// Since возвращает транзакции с датой не раньше from.
func Since(txs []models.Transaction, from time.Time) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.Before(from) {
			out = append(out, tx)
		}
	}
	return out
}

// Compute суммирует доходы и расходы в валюте base. Баланс = доход − расход.
func Compute(txs []models.Transaction, base models.Currency) Totals {
	t := Totals{
		Income:   decimal.Zero,
		Expense:  decimal.Zero,
		Currency: base,
	}
	for _, tx := range txs {
		amount := currency.Convert(tx.Amount, tx.Currency, base)
		switch tx.Type {
		case models.TypeIncome:
			t.Income = t.Income.Add(amount)
		case models.TypeExpense:
			t.Expense = t.Expense.Add(amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// ByCategory группирует транзакции типа typ по категориям.
// Результат отсортирован по убыванию суммы.
func ByCategory(txs []models.Transaction, typ models.TransactionType, base models.Currency) []Bucket {
	return group(txs, base, func(tx models.Transaction) (string, bool) {
		return tx.Category, tx.Type == typ
	})
}

// ByPaymentMethod группирует расходы по способу оплаты.
func ByPaymentMethod(txs []models.Transaction, base models.Currency) []Bucket {
	return group(txs, base, func(tx models.Transaction) (string, bool) {
		return string(tx.PaymentMethod), tx.Type == models.TypeExpense
	})
}

func group(txs []models.Transaction, base models.Currency, key func(models.Transaction) (string, bool)) []Bucket {
	index := make(map[string]int)
	var out []Bucket
	for _, tx := range txs {
		k, ok := key(tx)
		if !ok {
			continue
		}
		amount := currency.Convert(tx.Amount, tx.Currency, base)
		i, seen := index[k]
		if !seen {
			i = len(out)
			index[k] = i
			out = append(out, Bucket{Key: k, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}
