package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/spesesmart/internal/llm"
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func newTestTelegram(t *testing.T) (*Telegram, *fakeSender, dispatcherFixture) {
	t.Helper()
	f := newFixture(t)
	sender := &fakeSender{}
	return &Telegram{sender: sender, dispatcher: f.d, log: NewNoopLogger(), username: "spesebot"}, sender, f
}

func textUpdate(chatType, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: 42, Type: chatType},
		Text:      text,
	}}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 42, Type: "private"}},
	}}
}

func TestTelegramPaymentFlow(t *testing.T) {
	tg, sender, f := newTestTelegram(t)
	ctx := context.Background()
	f.classifier.On("Classify", mock.Anything, "12.50 pizza", mock.Anything, mock.Anything).Return(llm.Classification{
		Intent:      llm.IntentTransaction,
		Reply:       "Ok!",
		Transaction: &llm.Draft{Amount: amount("12.5"), Category: "Ristoranti", Description: "pizza"},
	}, nil)

	tg.handleUpdate(ctx, textUpdate("group", "@spesebot 12.50 pizza"))

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Empty(t, msg.ParseMode)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	require.NotNil(t, kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "CASH", *kb.InlineKeyboard[0][1].CallbackData)

	tg.handleUpdate(ctx, callbackUpdate("CASH"))

	require.Len(t, sender.sent, 2)
	edit, ok := sender.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 7, edit.MessageID)
	assert.Equal(t, tgbotapi.ModeMarkdown, edit.ParseMode)
	assert.Contains(t, edit.Text, "Salvato")
	require.Len(t, f.saver.saved, 1)
}

func TestTelegramExpiredCallback(t *testing.T) {
	tg, sender, _ := newTestTelegram(t)

	tg.handleUpdate(context.Background(), callbackUpdate("CARD"))

	assert.Empty(t, sender.sent)
	require.Len(t, sender.requests, 1)
	cb, ok := sender.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", cb.CallbackQueryID)
	assert.Equal(t, "Expired", cb.Text)
}

func TestTelegramMenuKeyboard(t *testing.T) {
	tg, sender, f := newTestTelegram(t)
	f.classifier.On("Classify", mock.Anything, "ciao", mock.Anything, mock.Anything).Return(llm.Classification{
		Intent: llm.IntentChat,
		Reply:  "Ciao!",
	}, nil)

	tg.handleUpdate(context.Background(), textUpdate("private", "ciao"))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, kb.ResizeKeyboard)
	assert.Equal(t, "📝 Aggiungi", kb.Keyboard[0][0].Text)
	assert.Equal(t, "📊 Resoconto", kb.Keyboard[0][1].Text)
}
