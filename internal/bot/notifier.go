package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/spesesmart/internal/lib/currency"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// UserReader возвращает пользователя по идентификатору.
type UserReader interface {
	Get(ctx context.Context, id string) (models.User, error)
}

// Notifier доставляет события о списании подписок в чат владельца.
type Notifier struct {
	users   UserReader
	sender  Sender
	log     *slog.Logger
	timeout time.Duration
}

// NewNotifier создаёт Notifier.
func NewNotifier(users UserReader, sender Sender, log *slog.Logger) *Notifier {
	return &Notifier{users: users, sender: sender, log: log, timeout: 10 * time.Second}
}

// HandleCharged обрабатывает тело сообщения очереди notification.charged.
// Ошибка возвращается только для сбоев, после которых имеет смысл повтор.
func (n *Notifier) HandleCharged(body []byte) error {
	const op = "bot.Notifier.HandleCharged"

	var event models.ChargedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		n.log.Error("failed to decode charged event", sl.Op(op), sl.Err(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	user, err := n.users.Get(ctx, event.UserID)
	if errors.Is(err, models.ErrNotFound) {
		n.log.Warn("charged event for unknown user", slog.String("user_id", event.UserID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.TelegramChatID == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(user.TelegramChatID, 10, 64)
	if err != nil {
		n.log.Warn("invalid telegram chat id", slog.String("user_id", user.ID), slog.String("chat_id", user.TelegramChatID))
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, ChargedText(event, user.Preferences.Language))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ChargedText рендерит уведомление о списании на языке lang.
func ChargedText(e models.ChargedEvent, lang models.Language) string {
	amount := currency.Format(e.Amount, e.Currency)
	next := e.NextDueDate.Format(time.DateOnly)
	name := escapeMarkdown(e.Name)
	switch lang {
	case models.LangEN:
		return fmt.Sprintf("🔁 *%s* charged: -%s\nNext payment: %s", name, amount, next)
	case models.LangPL:
		return fmt.Sprintf("🔁 *%s* pobrano: -%s\nNastępna płatność: %s", name, amount, next)
	default:
		return fmt.Sprintf("🔁 *%s* addebitato: -%s\nProssimo pagamento: %s", name, amount, next)
	}
}
