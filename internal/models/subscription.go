package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency — периодичность списания подписки.
type Frequency string

const (
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Subscription описывает регулярный платёж пользователя.
// Когда дата следующего списания наступает, подписка порождает транзакцию-расход
// и сдвигает дату на один период. Подписки не удаляются автоматически, только деактивируются.
type Subscription struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    Currency        `json:"currency"`
	Category    string          `json:"category"`
	Frequency   Frequency       `json:"frequency"`
	NextDueDate time.Time       `json:"nextDueDate"`
	Active      bool            `json:"active"`
	// BillingDay — день месяца, к которому привязаны списания. 0 — день NextDueDate.
	BillingDay int `json:"billingDay,omitempty"`
}

// SubscriptionDTO используется для приёма подписки из JSON до нормализации.
type SubscriptionDTO struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId" validate:"required"`
	Name        string           `json:"name" validate:"required"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Currency    string           `json:"currency"`
	Category    string           `json:"category"`
	Frequency   string           `json:"frequency"`
	NextDueDate string           `json:"nextDueDate" validate:"required"`
	Active      *bool            `json:"active,omitempty"`
	BillingDay  int              `json:"billingDay,omitempty" validate:"omitempty,min=1,max=31"`
}

// Sanitize нормализует подписку: MONTHLY, активна, категория Altro по умолчанию.
func (d SubscriptionDTO) Sanitize() (Subscription, error) {
	const op = "models.SubscriptionDTO.Sanitize"

	due, err := ParseDate(d.NextDueDate)
	if err != nil {
		return Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	s := Subscription{
		ID:          strings.TrimSpace(d.ID),
		UserID:      d.UserID,
		Name:        d.Name,
		Category:    d.Category,
		Frequency:   FrequencyMonthly,
		NextDueDate: due,
		Active:      true,
	}
	if d.Amount != nil {
		s.Amount = d.Amount.Abs()
	}
	if d.Currency != "" {
		if s.Currency, err = ParseCurrency(d.Currency); err != nil {
			return Subscription{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	switch Frequency(strings.ToUpper(d.Frequency)) {
	case FrequencyYearly:
		s.Frequency = FrequencyYearly
	case FrequencyMonthly, "":
	default:
		return Subscription{}, fmt.Errorf("%s: unknown frequency %q", op, d.Frequency)
	}
	if d.Active != nil {
		s.Active = *d.Active
	}
	if d.BillingDay >= 1 && d.BillingDay <= 31 {
		s.BillingDay = d.BillingDay
	}
	if s.Category == "" {
		s.Category = DefaultCategory
	}
	return s, nil
}

// Due сообщает, наступила ли дата списания.
func (s Subscription) Due(now time.Time) bool {
	return s.Active && !s.NextDueDate.After(now)
}

func (s Subscription) anchorDay() int {
	if s.BillingDay > 0 {
		return s.BillingDay
	}
	return s.NextDueDate.Day()
}

// Advance возвращает дату, сдвинутую на один период подписки. День списания
// сохраняется, а в коротких месяцах прижимается к последнему дню:
// 31 января, 29 февраля, 31 марта, 30 апреля.
func (s Subscription) Advance() time.Time {
	due := s.NextDueDate
	year, month, _ := due.Date()
	if s.Frequency == FrequencyYearly {
		year++
	} else {
		month++
	}
	// Нормализуем переход через декабрь до подсчёта дней.
	first := time.Date(year, month, 1, 0, 0, 0, 0, due.Location())
	last := daysIn(first.Year(), first.Month(), due.Location())
	hour, minute, sec := due.Clock()
	return time.Date(first.Year(), first.Month(), min(s.anchorDay(), last), hour, minute, sec, due.Nanosecond(), due.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// ChargeID — детерминированный идентификатор транзакции для конкретного списания.
// Повторная материализация того же списания даёт тот же id и не создаёт дубликатов.
func (s Subscription) ChargeID() string {
	key := "sub:" + s.ID + ":" + s.NextDueDate.UTC().Format(time.DateOnly)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// Charge материализует одно списание: возвращает транзакцию-расход, подписку
// со сдвинутой датой и true. Если списание ещё не наступило, ok == false.
func (s Subscription) Charge(now time.Time) (tx Transaction, next Subscription, ok bool) {
	if !s.Due(now) {
		return Transaction{}, s, false
	}
	tx = Transaction{
		ID:            s.ChargeID(),
		UserID:        s.UserID,
		Date:          s.NextDueDate,
		Amount:        s.Amount,
		Currency:      s.Currency,
		Category:      s.Category,
		Type:          TypeExpense,
		Description:   s.Name,
		PaymentMethod: PaymentCard,
	}
	next = s
	next.NextDueDate = s.Advance()
	next.BillingDay = s.anchorDay()
	return tx, next, true
}
