// Package bot реализует разговорный интерфейс трекера: распознавание намерения
// сообщения, сохранение транзакций с уточнением способа оплаты, отчёты,
// а также транспорт Telegram и доставку уведомлений о списаниях.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/spesesmart/internal/lib/metrics"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/llm"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Source — метка источника транзакций, созданных ботом.
const Source = "bot"

const (
	fallbackText = "⚠️ Error processing request."
	dbErrorText  = "❌ Errore DB / DB Error"
	expiredText  = "Expired"
)

// UserFinder ищет пользователя по привязанному чату.
type UserFinder interface {
	GetByChatID(ctx context.Context, chatID string) (models.User, error)
}

// TransactionSaver сохраняет готовую транзакцию.
type TransactionSaver interface {
	Save(ctx context.Context, tx models.Transaction, source string) (models.Transaction, error)
}

// ReportBuilder строит текст отчёта.
type ReportBuilder interface {
	Build(ctx context.Context, userID string, p models.Period, now time.Time) (string, error)
}

// Classifier распознаёт намерение сообщения.
type Classifier interface {
	Classify(ctx context.Context, text string, lang models.Language, now time.Time) (llm.Classification, error)
}

// State — состояние диалога в чате.
type State string

const (
	StateIdle            State = "idle"
	StateAwaitingPayment State = "awaiting_payment_method"
)

// Keyboard — клавиатура, которую транспорт прикладывает к ответу.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMenu
	KeyboardPayment
)

// Reply — ответ диспетчера, не зависящий от транспорта.
// Пустой Text означает, что отправлять нечего.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard Keyboard
	Language models.Language
	// Expired выставляется, если выбор способа оплаты пришёл, когда ничего не ожидается.
	Expired bool
}

// Dispatcher — конечный автомат диалога: idle ⇄ awaiting_payment_method.
type Dispatcher struct {
	users      UserFinder
	txs        TransactionSaver
	reports    ReportBuilder
	classifier Classifier
	pending    PendingStore
	log        *slog.Logger
	timeout    time.Duration
	now        func() time.Time
}

// NewDispatcher создаёт диспетчер. timeout ограничивает один вызов классификатора.
func NewDispatcher(users UserFinder, txs TransactionSaver, reports ReportBuilder, classifier Classifier, pending PendingStore, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Dispatcher{
		users:      users,
		txs:        txs,
		reports:    reports,
		classifier: classifier,
		pending:    pending,
		log:        log,
		timeout:    timeout,
		now:        time.Now,
	}
}

// State возвращает текущее состояние чата.
func (d *Dispatcher) State(ctx context.Context, chatID string) (State, error) {
	const op = "bot.Dispatcher.State"

	_, ok, err := d.pending.Get(ctx, chatID)
	if err != nil {
		return StateIdle, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return StateAwaitingPayment, nil
	}
	return StateIdle, nil
}

// HandleMessage обрабатывает текстовое сообщение из чата chatID.
// Ошибки зависимостей не возвращаются: они логируются и превращаются в ответ пользователю.
func (d *Dispatcher) HandleMessage(ctx context.Context, chatID, text string) Reply {
	const op = "bot.Dispatcher.HandleMessage"
	log := d.log.With(sl.Op(op), slog.String("chat_id", chatID))

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}
	}
	if text == "/start" || strings.HasPrefix(text, "/start ") {
		return Reply{Text: fmt.Sprintf("Benvenuto! Chat ID: `%s`", chatID), Markdown: true}
	}

	user, err := d.users.GetByChatID(ctx, chatID)
	if errors.Is(err, models.ErrNotFound) {
		return Reply{Text: "⚠️ User unknown. Add Chat ID to Dashboard: " + chatID}
	}
	if err != nil {
		log.Error("failed to find user", sl.Err(err))
		return Reply{Text: fallbackText}
	}
	lang := user.Preferences.Language
	now := d.now()

	switch menuAction(text) {
	case actionAdd:
		return Reply{Text: addHint(lang), Keyboard: KeyboardMenu, Language: lang}
	case actionInfo:
		return Reply{Text: infoText(lang, chatID), Markdown: true, Keyboard: KeyboardMenu, Language: lang}
	case actionReport:
		return d.report(ctx, log, user, "", models.PeriodWeekly, now)
	}

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	c, err := d.classifier.Classify(cctx, text, lang, now)
	if err != nil {
		log.Warn("failed to classify message", sl.Err(err))
		return Reply{Text: fallbackText}
	}
	metrics.BotIntents.WithLabelValues(string(c.Intent)).Inc()

	switch c.Intent {
	case llm.IntentReport:
		p, err := models.ParsePeriod(c.ReportType)
		if err != nil {
			p = models.PeriodWeekly
		}
		return d.report(ctx, log, user, c.Reply, p, now)
	case llm.IntentTransaction:
		if c.Transaction == nil || c.Transaction.Amount == nil || c.Transaction.Amount.IsZero() {
			return Reply{Text: c.Reply, Keyboard: KeyboardMenu, Language: lang}
		}
		return d.transaction(ctx, log, chatID, user, text, c, now)
	default:
		return Reply{Text: c.Reply, Keyboard: KeyboardMenu, Language: lang}
	}
}

// HandlePaymentChoice завершает ожидающую транзакцию выбранным способом оплаты.
func (d *Dispatcher) HandlePaymentChoice(ctx context.Context, chatID, method string) Reply {
	const op = "bot.Dispatcher.HandlePaymentChoice"
	log := d.log.With(sl.Op(op), slog.String("chat_id", chatID))

	tx, ok, err := d.pending.Get(ctx, chatID)
	if err != nil {
		log.Error("failed to read pending transaction", sl.Err(err))
		return Reply{Text: fallbackText}
	}
	if !ok {
		return Reply{Text: expiredText, Expired: true}
	}
	pm, ok := models.ParsePaymentMethod(method)
	if !ok {
		log.Warn("unknown payment method", slog.String("method", method))
		return Reply{Text: expiredText, Expired: true}
	}
	tx.PaymentMethod = pm

	saved, err := d.txs.Save(ctx, tx, Source)
	if err != nil {
		log.Error("failed to save transaction", sl.Err(err))
		return Reply{Text: dbErrorText}
	}
	if err := d.pending.Clear(ctx, chatID); err != nil {
		log.Warn("failed to clear pending transaction", sl.Err(err))
	}

	label := "Card"
	if pm == models.PaymentCash {
		label = "Cash"
	}
	return Reply{
		Text: fmt.Sprintf("✅ *Salvato* (%s %s)\n%s: %s",
			methodIcon(pm), label, escapeMarkdown(saved.Description), amountText(saved.Amount, saved.Currency)),
		Markdown: true,
	}
}

func (d *Dispatcher) report(ctx context.Context, log *slog.Logger, user models.User, reply string, p models.Period, now time.Time) Reply {
	text, err := d.reports.Build(ctx, user.ID, p, now)
	if err != nil {
		log.Error("failed to build report", sl.Err(err))
		return Reply{Text: fallbackText}
	}
	if reply != "" {
		text = escapeMarkdown(reply) + "\n\n" + text
	}
	return Reply{Text: text, Markdown: true, Keyboard: KeyboardMenu, Language: user.Preferences.Language}
}

func (d *Dispatcher) transaction(ctx context.Context, log *slog.Logger, chatID string, user models.User, text string, c llm.Classification, now time.Time) Reply {
	lang := user.Preferences.Language
	tx := draftToTransaction(*c.Transaction, user, text, now)

	method, methodKnown := models.PaymentMethod(""), false
	if c.Transaction.PaymentMethod != nil {
		method, methodKnown = models.ParsePaymentMethod(*c.Transaction.PaymentMethod)
	}
	if tx.Category == models.TipsCategory {
		tx.Type = models.TypeIncome
		method, methodKnown = models.PaymentCash, true
	}

	if !methodKnown {
		if err := d.pending.Set(ctx, chatID, tx); err != nil {
			log.Error("failed to store pending transaction", sl.Err(err))
			return Reply{Text: fallbackText}
		}
		return Reply{
			Text: fmt.Sprintf("%s\n\n💰 %s (%s)",
				c.Reply, amountText(tx.Amount, tx.Currency), tx.Category),
			Keyboard: KeyboardPayment,
			Language: lang,
		}
	}

	tx.PaymentMethod = method
	saved, err := d.txs.Save(ctx, tx, Source)
	if err != nil {
		log.Error("failed to save transaction", sl.Err(err))
		return Reply{Text: dbErrorText}
	}
	return Reply{
		Text: fmt.Sprintf("✅ *%s* (%s)\n%s - %s",
			escapeMarkdown(saved.Category), methodIcon(saved.PaymentMethod),
			amountText(saved.Amount, saved.Currency), escapeMarkdown(saved.Description)),
		Markdown: true,
		Keyboard: KeyboardMenu,
		Language: lang,
	}
}

// draftToTransaction подставляет значения по умолчанию: валюта пользователя,
// категория из каталога, текст сообщения как описание, расход, карта.
func draftToTransaction(draft llm.Draft, user models.User, text string, now time.Time) models.Transaction {
	tx := models.Transaction{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Date:          now,
		Amount:        draft.Amount.Abs(),
		Currency:      user.Preferences.Currency,
		Type:          models.TypeExpense,
		Description:   strings.TrimSpace(draft.Description),
		PaymentMethod: models.DefaultPaymentMethod,
	}
	if c, err := models.ParseCurrency(draft.Currency); err == nil && draft.Currency != "" {
		tx.Currency = c
	}
	if t, ok := models.ParseTransactionType(draft.Type); ok {
		tx.Type = t
	}
	tx.Category = ResolveCategory(draft.Category, tx.Type)
	if tx.Description == "" {
		tx.Description = text
	}
	return tx
}

func methodIcon(pm models.PaymentMethod) string {
	if pm == models.PaymentCash {
		return "💵"
	}
	return "💳"
}

func amountText(amount decimal.Decimal, c models.Currency) string {
	return amount.StringFixed(2) + " " + c.String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
