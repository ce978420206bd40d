package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargedEvent публикуется планировщиком после материализации списания подписки.
type ChargedEvent struct {
	UserID         string          `json:"userId"`
	SubscriptionID string          `json:"subscriptionId"`
	TransactionID  string          `json:"transactionId"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       Currency        `json:"currency"`
	ChargedAt      time.Time       `json:"chargedAt"`
	NextDueDate    time.Time       `json:"nextDueDate"`
}
