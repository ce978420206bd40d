package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

const subscriptionColumns = `id, user_id, name, amount, currency, category, frequency, next_due_date, active, billing_day`

// UpsertSubscription создаёт или заменяет подписку.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpsertSubscription"
	return upsertSubscription(ctx, s.DB, sub, op)
}

func upsertSubscription(ctx context.Context, db execer, sub models.Subscription, op string) error {
	query := `INSERT INTO subscriptions (` + subscriptionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (id) DO UPDATE SET
			      user_id = EXCLUDED.user_id,
			      name = EXCLUDED.name,
			      amount = EXCLUDED.amount,
			      currency = EXCLUDED.currency,
			      category = EXCLUDED.category,
			      frequency = EXCLUDED.frequency,
			      next_due_date = EXCLUDED.next_due_date,
			      active = EXCLUDED.active,
			      billing_day = EXCLUDED.billing_day`
	_, err := db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.Name, sub.Amount, sub.Currency, sub.Category,
		string(sub.Frequency), sub.NextDueDate, sub.Active, sub.BillingDay)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptions возвращает подписки пользователя по возрастанию даты списания.
func (s *Storage) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptions"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY next_due_date, id`
	return s.querySubscriptions(ctx, op, query, userID)
}

// ListDueSubscriptions возвращает активные подписки всех пользователей,
// срок списания которых наступил к моменту now.
func (s *Storage) ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	const op = "storage.ListDueSubscriptions"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE active AND next_due_date <= $1
			  ORDER BY next_due_date, id`
	return s.querySubscriptions(ctx, op, query, now)
}

func (s *Storage) querySubscriptions(ctx context.Context, op, query string, args ...any) ([]models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Subscription, 0)
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Amount, &sub.Currency, &sub.Category,
			&sub.Frequency, &sub.NextDueDate, &sub.Active, &sub.BillingDay); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteSubscription удаляет подписку и возвращает id владельца.
func (s *Storage) DeleteSubscription(ctx context.Context, id string) (userID string, found bool, err error) {
	const op = "storage.DeleteSubscription"

	err = s.DB.QueryRowContext(ctx, `DELETE FROM subscriptions WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return userID, true, nil
}

// ChargeSubscription атомарно записывает материализованную транзакцию
// и переносит дату следующего списания подписки.
func (s *Storage) ChargeSubscription(ctx context.Context, tx models.Transaction, next models.Subscription) error {
	const op = "storage.ChargeSubscription"

	dbTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = dbTx.Rollback() }()

	if err := upsertTransaction(ctx, dbTx, tx, op); err != nil {
		return err
	}
	if err := upsertSubscription(ctx, dbTx, next, op); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
