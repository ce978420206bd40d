package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
)

// Sender — часть *tgbotapi.BotAPI, через которую уходят ответы.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Telegram связывает Dispatcher с Bot API через long polling.
// Обновления обрабатываются по одному, поэтому состояние чата меняется последовательно.
type Telegram struct {
	api         *tgbotapi.BotAPI
	sender      Sender
	dispatcher  *Dispatcher
	log         *slog.Logger
	pollTimeout int
	username    string
}

// NewTelegram создаёт транспорт поверх готового клиента Bot API.
func NewTelegram(api *tgbotapi.BotAPI, dispatcher *Dispatcher, pollTimeout int, log *slog.Logger) *Telegram {
	return &Telegram{
		api:         api,
		sender:      api,
		dispatcher:  dispatcher,
		log:         log,
		pollTimeout: pollTimeout,
		username:    api.Self.UserName,
	}
}

// Run получает обновления до отмены ctx.
func (t *Telegram) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout

	updates := t.api.GetUpdatesChan(u)
	t.log.Info("telegram bot started", slog.String("username", t.username))

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.log.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		t.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		t.handleMessage(ctx, update.Message)
	}
}

func (t *Telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID
	text := msg.Text
	if (msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()) && t.username != "" {
		text = strings.TrimSpace(strings.ReplaceAll(text, "@"+t.username, ""))
	}

	if _, err := t.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		t.log.Debug("failed to send chat action", sl.Err(err))
	}

	reply := t.dispatcher.HandleMessage(ctx, strconv.FormatInt(chatID, 10), text)
	if reply.Text == "" {
		return
	}
	out := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	switch reply.Keyboard {
	case KeyboardMenu:
		out.ReplyMarkup = menuKeyboard(reply)
	case KeyboardPayment:
		out.ReplyMarkup = paymentKeyboard()
	}
	t.send(out)
}

func (t *Telegram) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil {
		return
	}
	chatID := q.Message.Chat.ID

	reply := t.dispatcher.HandlePaymentChoice(ctx, strconv.FormatInt(chatID, 10), q.Data)
	if reply.Expired {
		if _, err := t.sender.Request(tgbotapi.NewCallback(q.ID, reply.Text)); err != nil {
			t.log.Error("failed to answer callback", sl.Err(err))
		}
		return
	}
	if _, err := t.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		t.log.Debug("failed to answer callback", sl.Err(err))
	}

	if !reply.Markdown {
		t.send(tgbotapi.NewMessage(chatID, reply.Text))
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, q.Message.MessageID, reply.Text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	t.send(edit)
}

func (t *Telegram) send(c tgbotapi.Chattable) {
	if _, err := t.sender.Send(c); err != nil {
		t.log.Error("failed to send message", sl.Err(err))
	}
}

func menuKeyboard(reply Reply) tgbotapi.ReplyKeyboardMarkup {
	m := Menu(reply.Language)
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(m.Add),
			tgbotapi.NewKeyboardButton(m.Report),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(m.Info),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func paymentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Card", "CARD"),
			tgbotapi.NewInlineKeyboardButtonData("💵 Cash", "CASH"),
		),
	)
}
