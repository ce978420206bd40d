// Package models содержит доменные структуры трекера: транзакции, пользователей,
// подписки, а также DTO для приёма данных из внешних источников (JSON-запросы,
// локальный кеш, ответы сервера) и их нормализацию.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Суммы передаются по сети числами, а не строками.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType определяет направление движения денег.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// PaymentMethod — способ оплаты.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "CARD"
	PaymentCash PaymentMethod = "CASH"
)

// DefaultPaymentMethod подставляется, когда способ оплаты не указан.
const DefaultPaymentMethod = PaymentCard

// ParsePaymentMethod распознаёт CARD/CASH без учёта регистра.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentCard:
		return PaymentCard, true
	case PaymentCash:
		return PaymentCash, true
	}
	return "", false
}

// ParseTransactionType распознаёт INCOME/EXPENSE без учёта регистра.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome, true
	case TypeExpense:
		return TypeExpense, true
	}
	return "", false
}

// Transaction представляет собой основную модель операции,
// используемую в бизнес-логике, хранилище и кеше.
// Сумма всегда неотрицательна, направление задаётся полем Type.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      Currency        `json:"currency"`
	Category      string          `json:"category"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

// TransactionDTO используется для приёма транзакции из JSON до нормализации.
// Необязательные поля — указатели: их отсутствие отличимо от пустого значения.
type TransactionDTO struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId" validate:"required"`
	Date          string           `json:"date"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	Currency      string           `json:"currency"`
	Category      string           `json:"category" validate:"required"`
	Type          string           `json:"type" validate:"required"`
	Description   *string          `json:"description,omitempty"`
	PaymentMethod *string          `json:"paymentMethod,omitempty"`
}

// ErrInvalidDate возвращается, если дату не удалось разобрать ни в одном из форматов.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate принимает RFC 3339 или дату вида 2006-01-02 (полночь по локальному времени).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Sanitize нормализует DTO в Transaction: единственное место, где
// подставляются значения по умолчанию для отсутствующих полей.
// now используется, если дата не передана.
func (d TransactionDTO) Sanitize(now time.Time) (Transaction, error) {
	const op = "models.TransactionDTO.Sanitize"

	tx := Transaction{
		ID:            strings.TrimSpace(d.ID),
		UserID:        d.UserID,
		Category:      strings.TrimSpace(d.Category),
		Type:          TypeExpense,
		PaymentMethod: DefaultPaymentMethod,
		Date:          now,
	}

	if d.Date != "" {
		date, err := ParseDate(d.Date)
		if err != nil {
			return Transaction{}, fmt.Errorf("%s: %w", op, err)
		}
		tx.Date = date
	}

	if d.Amount != nil {
		tx.Amount = d.Amount.Abs()
	}

	if d.Currency != "" {
		c, err := ParseCurrency(d.Currency)
		if err != nil {
			return Transaction{}, fmt.Errorf("%s: %w", op, err)
		}
		tx.Currency = c
	}

	if d.Type != "" {
		t, ok := ParseTransactionType(d.Type)
		if !ok {
			return Transaction{}, fmt.Errorf("%s: unknown type %q", op, d.Type)
		}
		tx.Type = t
	}

	if d.Description != nil {
		tx.Description = *d.Description
	}

	if d.PaymentMethod != nil {
		if pm, ok := ParsePaymentMethod(*d.PaymentMethod); ok {
			tx.PaymentMethod = pm
		}
	}

	if tx.Category == "" {
		tx.Category = DefaultCategory
	}

	return tx, nil
}

// DTO возвращает представление транзакции для повторной нормализации,
// например после чтения из локального кеша.
func (t Transaction) DTO() TransactionDTO {
	amount := t.Amount
	description := t.Description
	method := string(t.PaymentMethod)
	return TransactionDTO{
		ID:            t.ID,
		UserID:        t.UserID,
		Date:          t.Date.Format(time.RFC3339Nano),
		Amount:        &amount,
		Currency:      t.Currency.String(),
		Category:      t.Category,
		Type:          string(t.Type),
		Description:   &description,
		PaymentMethod: &method,
	}
}
