// Package llm оборачивает языковую модель Gemini: классификация сообщений бота,
// разбор свободного текста в черновик транзакции и краткий анализ финансов.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

var (
	// ErrUnconfigured возвращается, если ключ API не задан.
	ErrUnconfigured = errors.New("llm: api key is not configured")
	// ErrMalformed возвращается, если ответ модели не соответствует ожидаемому JSON.
	ErrMalformed = errors.New("llm: malformed response")
)

// Intent — намерение, распознанное в сообщении пользователя.
type Intent string

const (
	IntentTransaction Intent = "TRANSACTION"
	IntentReport      Intent = "REPORT"
	IntentChat        Intent = "CHAT"
)

// Draft — транзакция в том виде, в каком её извлекла модель. Все поля необязательны.
type Draft struct {
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
	Category      string           `json:"category"`
	Type          string           `json:"type"`
	Description   string           `json:"description"`
	PaymentMethod *string          `json:"paymentMethod"`
}

// Classification — результат классификации сообщения бота.
type Classification struct {
	Intent      Intent `json:"intent"`
	Reply       string `json:"reply"`
	Transaction *Draft `json:"transactionData"`
	ReportType  string `json:"reportType"`
}

// generator — минимальный контракт модели: промпт на вход, текст на выход.
type generator interface {
	Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error)
}

// Client выполняет запросы к модели с таймаутом на каждый вызов.
type Client struct {
	gen     generator
	timeout time.Duration
}

// New создаёт клиента Gemini API. Пустой apiKey не является ошибкой:
// клиент создаётся, но все вызовы возвращают ErrUnconfigured.
func New(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	const op = "llm.New"

	if apiKey == "" {
		return &Client{timeout: timeout}, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Client{gen: &gemini{client: c, model: model}, timeout: timeout}, nil
}

// Configured сообщает, можно ли обращаться к модели.
func (c *Client) Configured() bool {
	return c != nil && c.gen != nil
}

// Classify определяет намерение сообщения и извлекает данные транзакции или тип отчёта.
func (c *Client) Classify(ctx context.Context, text string, lang models.Language, now time.Time) (Classification, error) {
	const op = "llm.Classify"

	raw, err := c.generate(ctx, classifyPrompt(text, lang, now), true)
	if err != nil {
		return Classification{}, fmt.Errorf("%s: %w", op, err)
	}
	var out Classification
	if err := decode(raw, &out); err != nil {
		return Classification{}, fmt.Errorf("%s: %w", op, err)
	}
	switch out.Intent {
	case IntentTransaction, IntentReport, IntentChat:
	default:
		return Classification{}, fmt.Errorf("%s: %w: unknown intent %q", op, ErrMalformed, out.Intent)
	}
	return out, nil
}

// ParseTransaction разбирает свободный текст вида "caffè 1.20 contanti" в черновик.
func (c *Client) ParseTransaction(ctx context.Context, text string) (Draft, error) {
	const op = "llm.ParseTransaction"

	raw, err := c.generate(ctx, parsePrompt(text), true)
	if err != nil {
		return Draft{}, fmt.Errorf("%s: %w", op, err)
	}
	var d Draft
	if err := decode(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("%s: %w", op, err)
	}
	if d.Amount == nil {
		return Draft{}, fmt.Errorf("%s: %w: amount is missing", op, ErrMalformed)
	}
	return d, nil
}

// MaxAnalyzed — сколько последних транзакций передаётся модели для анализа.
const MaxAnalyzed = 40

// Analyze возвращает короткий Markdown-отчёт о финансах на языке lang.
func (c *Client) Analyze(ctx context.Context, txs []models.Transaction, lang models.Language, base models.Currency) (string, error) {
	const op = "llm.Analyze"

	prompt, err := analyzePrompt(txs, lang, base)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	text, err := c.generate(ctx, prompt, false)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w: empty analysis", op, ErrMalformed)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	if !c.Configured() {
		return "", ErrUnconfigured
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.gen.Generate(ctx, prompt, jsonOutput)
}

func decode(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

type gemini struct {
	client *genai.Client
	model  string
}

func (g *gemini) Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	var cfg *genai.GenerateContentConfig
	if jsonOutput {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
