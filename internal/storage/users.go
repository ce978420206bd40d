package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

const userColumns = `id, name, avatar, password, COALESCE(telegram_chat_id, ''), currency, language`

// GetUser возвращает пользователя по id или ErrNotFound.
func (s *Storage) GetUser(ctx context.Context, id string) (models.User, error) {
	const op = "storage.GetUser"

	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByChatID ищет пользователя, привязавшего Telegram-чат.
func (s *Storage) GetUserByChatID(ctx context.Context, chatID string) (models.User, error) {
	const op = "storage.GetUserByChatID"

	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_chat_id = $1`, chatID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpsertUser создаёт или заменяет профиль пользователя.
func (s *Storage) UpsertUser(ctx context.Context, u models.User) error {
	const op = "storage.UpsertUser"

	var chatID sql.NullString
	if u.TelegramChatID != "" {
		chatID = sql.NullString{String: u.TelegramChatID, Valid: true}
	}

	query := `INSERT INTO users (id, name, avatar, password, telegram_chat_id, currency, language)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (id) DO UPDATE SET
			      name = EXCLUDED.name,
			      avatar = EXCLUDED.avatar,
			      password = EXCLUDED.password,
			      telegram_chat_id = EXCLUDED.telegram_chat_id,
			      currency = EXCLUDED.currency,
			      language = EXCLUDED.language`
	_, err := s.DB.ExecContext(ctx, query,
		u.ID, u.Name, u.Avatar, u.Password, chatID, u.Preferences.Currency, string(u.Preferences.Language))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanUser(row scanner) (models.User, error) {
	var (
		u    models.User
		lang string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Avatar, &u.Password, &u.TelegramChatID, &u.Preferences.Currency, &lang)
	u.Preferences.Language = models.ParseLanguage(lang)
	return u, err
}
