package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type row struct {
	id     string
	userID string
	value  any
}

// list читает коллекцию table. Пустой userID — все записи.
// Записи, которые не удалось декодировать, пропускаются.
func list[T any](ctx context.Context, db *sql.DB, table, userID string) ([]T, error) {
	op := "localcache.list." + table

	query := `SELECT data FROM ` + table
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY rowid`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func encode(r row) (string, error) {
	data, err := json.Marshal(r.value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// upsert сохраняет локальную правку: запись помечается несинхронизированной.
func upsert(ctx context.Context, db execer, table string, r row) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, user_id, data, dirty) VALUES (?, ?, ?, 1)
		 ON CONFLICT (id) DO UPDATE SET user_id = excluded.user_id, data = excluded.data, dirty = 1`,
		r.id, r.userID, data)
	return err
}

// upsertSnapshot сохраняет копию с сервера. Несинхронизированные и удалённые
// локально записи она не трогает.
func upsertSnapshot(ctx context.Context, db execer, table string, r row) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, user_id, data, dirty)
		 SELECT ?, ?, ?, 0
		 WHERE NOT EXISTS (SELECT 1 FROM tombstones WHERE kind = ? AND id = ?)
		 ON CONFLICT (id) DO UPDATE SET user_id = excluded.user_id, data = excluded.data
		 WHERE `+table+`.dirty = 0`,
		r.id, r.userID, data, table, r.id)
	return err
}

// inTx выполняет fn в транзакции SQLite.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// put сохраняет локальную правку и снимает отметку об удалении того же id.
func put(ctx context.Context, db *sql.DB, table string, r row) error {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		if err := upsert(ctx, tx, table, r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM tombstones WHERE kind = ? AND id = ?`, table, r.id)
		return err
	})
	if err != nil {
		return fmt.Errorf("localcache.put.%s: %w", table, err)
	}
	return nil
}

// remove удаляет запись и оставляет отметку об удалении до подтверждения сервером.
// Для отсутствующего id ничего не меняется.
func remove(ctx context.Context, db *sql.DB, table, id string) error {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		var userID string
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM `+table+` WHERE id = ?`, id).Scan(&userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tombstones (kind, id, user_id) VALUES (?, ?, ?)
			 ON CONFLICT (kind, id) DO UPDATE SET user_id = excluded.user_id`,
			table, id, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("localcache.remove.%s: %w", table, err)
	}
	return nil
}

// replace применяет снимок сервера к записям одного пользователя. Синхронизированные
// записи, которых нет в снимке, удаляются; несинхронизированные остаются как есть.
func replace(ctx context.Context, db *sql.DB, table, userID string, rows []row) error {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ? AND dirty = 0`, userID); err != nil {
			return err
		}
		for _, r := range rows {
			if err := upsertSnapshot(ctx, tx, table, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("localcache.replace.%s: %w", table, err)
	}
	return nil
}

// pending возвращает id несинхронизированных записей и удалений пользователя.
func pending(ctx context.Context, db *sql.DB, table, userID string) (unsynced, deleted []string, err error) {
	op := "localcache.pending." + table

	unsynced, err = ids(ctx, db, `SELECT id FROM `+table+` WHERE user_id = ? AND dirty = 1 ORDER BY rowid`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	deleted, err = ids(ctx, db, `SELECT id FROM tombstones WHERE kind = ? AND user_id = ? ORDER BY rowid`, table, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return unsynced, deleted, nil
}

func ids(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// markSynced снимает пометку, только если запись не менялась после отправки r.
func markSynced(ctx context.Context, db *sql.DB, table string, r row) error {
	data, err := encode(r)
	if err == nil {
		_, err = db.ExecContext(ctx, `UPDATE `+table+` SET dirty = 0 WHERE id = ? AND data = ?`, r.id, data)
	}
	if err != nil {
		return fmt.Errorf("localcache.markSynced.%s: %w", table, err)
	}
	return nil
}

func forgetDeleted(ctx context.Context, db *sql.DB, table, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM tombstones WHERE kind = ? AND id = ?`, table, id); err != nil {
		return fmt.Errorf("localcache.forgetDeleted.%s: %w", table, err)
	}
	return nil
}
