//go:build integration

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/spesesmart/internal/migrations"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

func setupTestDb(t *testing.T) *Storage {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, storage.CheckDatabaseReady(ctx))

	return storage
}

func TestStorage_Transactions(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tx := models.Transaction{
		ID:            "tx-1",
		UserID:        "user_matteo",
		Date:          now,
		Amount:        decimal.RequireFromString("12.50"),
		Currency:      models.EUR,
		Category:      "Alimentari",
		Type:          models.TypeExpense,
		Description:   "spesa",
		PaymentMethod: models.PaymentCash,
	}
	require.NoError(t, s.UpsertTransaction(ctx, tx))

	tx.Amount = decimal.RequireFromString("13")
	require.NoError(t, s.UpsertTransaction(ctx, tx))

	list, err := s.ListTransactions(ctx, "user_matteo")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(13)))
	assert.Equal(t, models.PaymentCash, list[0].PaymentMethod)
	assert.Equal(t, models.EUR, list[0].Currency)

	since, err := s.ListTransactionsSince(ctx, "user_matteo", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, since)

	userID, found, err := s.DeleteTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "user_matteo", userID)

	_, found, err = s.DeleteTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_Users(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()

	u, err := s.GetUser(ctx, "user_diana")
	require.NoError(t, err)
	assert.Equal(t, models.PLN, u.Preferences.Currency)
	assert.Equal(t, models.LangPL, u.Preferences.Language)

	u.TelegramChatID = "4242"
	require.NoError(t, s.UpsertUser(ctx, u))

	byChat, err := s.GetUserByChatID(ctx, "4242")
	require.NoError(t, err)
	assert.Equal(t, "user_diana", byChat.ID)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_ChargeSubscription(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	due := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	sub := models.Subscription{
		ID:          "sub-1",
		UserID:      "user_matteo",
		Name:        "Netflix",
		Amount:      decimal.RequireFromString("9.99"),
		Currency:    models.EUR,
		Category:    "Svago",
		Frequency:   models.FrequencyMonthly,
		NextDueDate: due,
		Active:      true,
	}
	require.NoError(t, s.UpsertSubscription(ctx, sub))

	dueList, err := s.ListDueSubscriptions(ctx, due.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, dueList, 1)

	tx, next, ok := dueList[0].Charge(due.Add(time.Hour))
	require.True(t, ok)
	require.NoError(t, s.ChargeSubscription(ctx, tx, next))
	require.NoError(t, s.ChargeSubscription(ctx, tx, next))

	txs, err := s.ListTransactions(ctx, "user_matteo")
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	dueList, err = s.ListDueSubscriptions(ctx, due.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, dueList)

	subs, err := s.ListSubscriptions(ctx, "user_matteo")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.True(t, subs[0].NextDueDate.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 31, subs[0].BillingDay)
}
