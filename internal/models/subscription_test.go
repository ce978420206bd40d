package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_Charge(t *testing.T) {
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	sub := Subscription{
		ID:          "s1",
		UserID:      "u1",
		Name:        "Netflix",
		Amount:      decimal.RequireFromString("12.99"),
		Currency:    EUR,
		Category:    "Svago",
		Frequency:   FrequencyMonthly,
		NextDueDate: due,
		Active:      true,
	}

	_, same, ok := sub.Charge(due.Add(-time.Hour))
	assert.False(t, ok)
	assert.Equal(t, sub, same)

	tx, next, ok := sub.Charge(due.Add(time.Hour))
	require.True(t, ok)
	assert.Equal(t, TypeExpense, tx.Type)
	assert.Equal(t, "u1", tx.UserID)
	assert.Equal(t, "Netflix", tx.Description)
	assert.Equal(t, due, tx.Date)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), next.NextDueDate, "clamped to the end of february")
	assert.Equal(t, 31, next.BillingDay)

	again, _, _ := sub.Charge(due.Add(2 * time.Hour))
	assert.Equal(t, tx.ID, again.ID, "same charge must keep the same id")
}

func TestSubscription_ChargeInactiveOrYearly(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inactive := Subscription{ID: "s", NextDueDate: due, Active: false}
	_, _, ok := inactive.Charge(due.AddDate(1, 0, 0))
	assert.False(t, ok)

	yearly := Subscription{ID: "y", NextDueDate: due, Active: true, Frequency: FrequencyYearly}
	_, next, ok := yearly.Charge(due)
	require.True(t, ok)
	assert.Equal(t, due.AddDate(1, 0, 0), next.NextDueDate)
}

func TestSubscription_AdvanceKeepsBillingDay(t *testing.T) {
	tests := []struct {
		name string
		sub  Subscription
		want []time.Time
	}{
		{
			name: "end of month",
			sub:  Subscription{NextDueDate: time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)},
			want: []time.Time{
				time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC),
				time.Date(2024, 3, 31, 9, 30, 0, 0, time.UTC),
				time.Date(2024, 4, 30, 9, 30, 0, 0, time.UTC),
				time.Date(2024, 5, 31, 9, 30, 0, 0, time.UTC),
			},
		},
		{
			name: "thirtieth across a non-leap february",
			sub:  Subscription{NextDueDate: time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)},
			want: []time.Time{
				time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "december rolls into next year",
			sub:  Subscription{NextDueDate: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
			want: []time.Time{
				time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "explicit billing day wins over the current date",
			sub:  Subscription{NextDueDate: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), BillingDay: 31},
			want: []time.Time{time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		},
		{
			name: "yearly leap day",
			sub:  Subscription{NextDueDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Frequency: FrequencyYearly},
			want: []time.Time{
				time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2027, 2, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := tt.sub
			sub.Active = true
			for _, want := range tt.want {
				_, next, ok := sub.Charge(sub.NextDueDate)
				require.True(t, ok)
				assert.Equal(t, want, next.NextDueDate)
				sub = next
			}
		})
	}
}

func TestSubscriptionDTO_Sanitize(t *testing.T) {
	amount := decimal.NewFromInt(10)
	s, err := SubscriptionDTO{UserID: "u", Name: "Gym", Amount: &amount, NextDueDate: "2024-05-01"}.Sanitize()
	require.NoError(t, err)
	assert.Equal(t, FrequencyMonthly, s.Frequency)
	assert.True(t, s.Active)
	assert.Equal(t, DefaultCategory, s.Category)
	assert.Zero(t, s.BillingDay)

	s, err = SubscriptionDTO{UserID: "u", Name: "Gym", Amount: &amount, NextDueDate: "2024-02-29", BillingDay: 31}.Sanitize()
	require.NoError(t, err)
	assert.Equal(t, 31, s.BillingDay)

	_, err = SubscriptionDTO{UserID: "u", Name: "Gym", Amount: &amount, NextDueDate: "2024-05-01", Frequency: "WEEKLY"}.Sanitize()
	assert.Error(t, err)
}

func TestUserDTO_Sanitize(t *testing.T) {
	u := UserDTO{ID: "u", Name: "Matteo", Preferences: &PreferencesDTO{Currency: "PLN", Language: "pl"}}.Sanitize()
	assert.Equal(t, DefaultPassword, u.Password)
	assert.Equal(t, PLN, u.Preferences.Currency)
	assert.Equal(t, LangPL, u.Preferences.Language)
	assert.True(t, u.CheckPassword("1234"))
	assert.False(t, u.CheckPassword("12345"))

	bare := UserDTO{ID: "x", Name: "X"}.Sanitize()
	assert.Equal(t, EUR, bare.Preferences.Currency)
	assert.Equal(t, LangIT, bare.Preferences.Language)
}
