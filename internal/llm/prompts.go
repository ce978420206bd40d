package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

func classifyPrompt(text string, lang models.Language, now time.Time) string {
	categories := strings.Join(models.Categories(), ", ")
	return fmt.Sprintf(`You are a smart financial assistant for a Telegram Bot.
Current Date: %s.
User Language: "%s".

Analyze the user's text: %q

Determine the INTENT:
1. 'TRANSACTION': The user wants to add an expense or income (e.g., "10 euro pizza", "stipendio 1500").
2. 'REPORT': The user asks for a summary/report/stats (e.g., "how much did I spend today?", "resoconto", "saldo").
3. 'CHAT': General conversation or greeting (e.g., "hello", "info", "help").

OUTPUT JSON FORMAT:
{
  "intent": "TRANSACTION" | "REPORT" | "CHAT",
  "reply": "A friendly natural language response in %s. If intent is TRANSACTION, do NOT confirm success yet, just acknowledge understanding.",
  "transactionData": {
    "amount": number (use dot for decimals),
    "currency": "EUR" | "USD" | "PLN" | null,
    "category": "String from list: [%s]",
    "type": "INCOME" | "EXPENSE",
    "description": "Clean description",
    "paymentMethod": "CASH" | "CARD" | null (Detect if user said 'cash', 'contanti', 'card', 'carta'. If 'Mance' category, force 'CASH'. If unknown, set null.)
  },
  "reportType": "DAILY" | "WEEKLY" | "MONTHLY" | "YEARLY" | "ALL"
}
Set "transactionData" only if intent is TRANSACTION and "reportType" only if intent is REPORT (default WEEKLY).`,
		now.Format(time.RFC3339), lang, text, lang, categories)
}

func parsePrompt(text string) string {
	categories := strings.Join(models.Categories(), `" | "`)
	return fmt.Sprintf(`Analizza la seguente spesa/entrata: %q.
Restituisci ESCLUSIVAMENTE un oggetto JSON con questi campi:
{
  "amount": numero (usa il punto per decimali),
  "currency": "EUR" | "USD" | "PLN",
  "category": "%s",
  "type": "INCOME" (se stipendio, regali, mance) o "EXPENSE" (tutto il resto),
  "description": "breve descrizione",
  "paymentMethod": "CASH" o "CARD"
}

REGOLE PER IL METODO DI PAGAMENTO:
- Imposta "CASH" se l'utente scrive "contanti", "soldi", "mancia", "a mano", "monete" o se la spesa è piccola (es. caffè, giornale) e non specifica altro.
- Imposta "CARD" se scrive "carta", "bancomat", "online", "amazon", "apple pay" o se la spesa è grande e non specifica.
- Se incerto, usa "CARD".`, text, categories)
}

type analyzedTransaction struct {
	Date     string                 `json:"date"`
	Amount   decimal.Decimal        `json:"amount"`
	Currency models.Currency        `json:"currency"`
	Category string                 `json:"cat"`
	Type     models.TransactionType `json:"type"`
	Method   models.PaymentMethod   `json:"method"`
}

func analyzePrompt(txs []models.Transaction, lang models.Language, base models.Currency) (string, error) {
	if len(txs) > MaxAnalyzed {
		txs = txs[:MaxAnalyzed]
	}
	summary := make([]analyzedTransaction, 0, len(txs))
	for _, t := range txs {
		summary = append(summary, analyzedTransaction{
			Date:     t.Date.Format(time.DateOnly),
			Amount:   t.Amount,
			Currency: t.Currency,
			Category: t.Category,
			Type:     t.Type,
			Method:   t.PaymentMethod,
		})
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Analizza questi dati finanziari: %s. Valuta base: %s.
Fornisci un report breve e motivante in lingua "%s". Usa Markdown.`, data, base, lang), nil
}
