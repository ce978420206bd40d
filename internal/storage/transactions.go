package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

const transactionColumns = `id, user_id, date, amount, currency, category, type, description, payment_method`

// UpsertTransaction сохраняет транзакцию. Повторная запись с тем же id
// перезаписывает поля, дубликат не появляется.
func (s *Storage) UpsertTransaction(ctx context.Context, tx models.Transaction) error {
	const op = "storage.UpsertTransaction"
	return upsertTransaction(ctx, s.DB, tx, op)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTransaction(ctx context.Context, db execer, tx models.Transaction, op string) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (id) DO UPDATE SET
			      user_id = EXCLUDED.user_id,
			      date = EXCLUDED.date,
			      amount = EXCLUDED.amount,
			      currency = EXCLUDED.currency,
			      category = EXCLUDED.category,
			      type = EXCLUDED.type,
			      description = EXCLUDED.description,
			      payment_method = EXCLUDED.payment_method`
	_, err := db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Date, tx.Amount, tx.Currency, tx.Category,
		string(tx.Type), tx.Description, string(tx.PaymentMethod))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTransactions возвращает все транзакции пользователя, новые первыми.
func (s *Storage) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	const op = "storage.ListTransactions"

	query := `SELECT ` + transactionColumns + `
			  FROM transactions
			  WHERE user_id = $1
			  ORDER BY date DESC, id`
	return s.queryTransactions(ctx, op, query, userID)
}

// ListTransactionsSince возвращает транзакции пользователя с датой не раньше since.
func (s *Storage) ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	const op = "storage.ListTransactionsSince"

	query := `SELECT ` + transactionColumns + `
			  FROM transactions
			  WHERE user_id = $1 AND date >= $2
			  ORDER BY date DESC, id`
	return s.queryTransactions(ctx, op, query, userID, since)
}

func (s *Storage) queryTransactions(ctx context.Context, op, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanTransaction(row scanner) (models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Date, &tx.Amount, &tx.Currency, &tx.Category,
		&tx.Type, &tx.Description, &tx.PaymentMethod)
	return tx, err
}

// DeleteTransaction удаляет транзакцию и возвращает id её владельца.
// Отсутствующий id не является ошибкой: found будет false.
func (s *Storage) DeleteTransaction(ctx context.Context, id string) (userID string, found bool, err error) {
	const op = "storage.DeleteTransaction"

	err = s.DB.QueryRowContext(ctx, `DELETE FROM transactions WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return userID, true, nil
}
