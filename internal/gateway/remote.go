package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// ErrUnavailable — мягкий отказ удалённого API: сеть, таймаут, не-2xx или нечитаемый ответ.
var ErrUnavailable = errors.New("gateway: remote unavailable")

// DefaultTimeout ограничивает один вызов удалённого API.
const DefaultTimeout = 5 * time.Second

// StatusError — ответ сервера с кодом не из диапазона 2xx.
// Для errors.Is он эквивалентен ErrUnavailable.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned status %d", e.Code)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

// Client — HTTP-клиент REST API сервера.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient создаёт клиента. timeout <= 0 заменяется на DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]models.TransactionDTO, error) {
	var out []models.TransactionDTO
	err := c.do(ctx, http.MethodGet, "/api/transactions?userId="+url.QueryEscape(userID), "", nil, &out)
	return out, err
}

func (c *Client) CreateTransaction(ctx context.Context, tx models.Transaction) error {
	return c.do(ctx, http.MethodPost, "/api/transactions", "", tx.DTO(), nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), "", nil, nil)
}

func (c *Client) GetUser(ctx context.Context, id string) (models.UserDTO, error) {
	var out models.UserDTO
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), "", nil, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, token string, u models.User) error {
	return c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(u.ID), token, u.DTO(), nil)
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  models.UserDTO `json:"user"`
}

func (c *Client) Login(ctx context.Context, userID, password string) (string, models.UserDTO, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", "", loginRequest{UserID: userID, Password: password}, &out)
	return out.Token, out.User, err
}

func (c *Client) ListSubscriptions(ctx context.Context, userID string) ([]models.SubscriptionDTO, error) {
	var out []models.SubscriptionDTO
	err := c.do(ctx, http.MethodGet, "/api/subscriptions?userId="+url.QueryEscape(userID), "", nil, &out)
	return out, err
}

func (c *Client) CreateSubscription(ctx context.Context, s models.Subscription) error {
	return c.do(ctx, http.MethodPost, "/api/subscriptions", "", s, nil)
}

func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/subscriptions/"+url.PathEscape(id), "", nil, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

// do выполняет запрос с собственным таймаутом. Любой сбой оборачивается в ErrUnavailable.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		return fmt.Errorf("%s %s: %w", method, path, &StatusError{Code: resp.StatusCode, Message: eb.Error})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode: %v", ErrUnavailable, method, path, err)
	}
	return nil
}
