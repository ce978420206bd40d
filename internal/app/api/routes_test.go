package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/spesesmart/internal/lib/jwt"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services/report"
	"github.com/magabrotheeeer/spesesmart/internal/services/subscription"
	"github.com/magabrotheeeer/spesesmart/internal/services/transaction"
	"github.com/magabrotheeeer/spesesmart/internal/services/user"
)

// memRepo — хранилище в памяти для проверки маршрутов целиком.
type memRepo struct {
	mu    sync.Mutex
	txs   map[string]models.Transaction
	users map[string]models.User
	subs  map[string]models.Subscription
}

func newMemRepo() *memRepo {
	r := &memRepo{
		txs:   map[string]models.Transaction{},
		users: map[string]models.User{},
		subs:  map[string]models.Subscription{},
	}
	for _, u := range models.SeedUsers() {
		r.users[u.ID] = u
	}
	return r
}

func (r *memRepo) UpsertTransaction(_ context.Context, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.ID] = tx
	return nil
}

func (r *memRepo) ListTransactions(_ context.Context, userID string) ([]models.Transaction, error) {
	return r.ListTransactionsSince(context.Background(), userID, time.Time{})
}

func (r *memRepo) ListTransactionsSince(_ context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Transaction{}
	for _, tx := range r.txs {
		if tx.UserID == userID && !tx.Date.Before(since) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteTransaction(_ context.Context, id string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	delete(r.txs, id)
	return tx.UserID, ok, nil
}

func (r *memRepo) GetUser(_ context.Context, id string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (r *memRepo) GetUserByChatID(_ context.Context, chatID string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramChatID == chatID {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (r *memRepo) UpsertUser(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memRepo) UpsertSubscription(_ context.Context, s models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.ID] = s
	return nil
}

func (r *memRepo) ListSubscriptions(_ context.Context, userID string) ([]models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Subscription{}
	for _, s := range r.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteSubscription(_ context.Context, id string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	delete(r.subs, id)
	return s.UserID, ok, nil
}

func newTestRouter(t *testing.T) (http.Handler, jwt.Maker) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemRepo()
	maker := jwt.NewJWTMaker("secret", time.Hour)

	txService := transaction.New(repo, nil, time.Minute, logger)
	userService := user.New(repo, nil, time.Minute, maker, logger)

	r := chi.NewRouter()
	RegisterRoutes(r, logger, Services{
		Transactions:  txService,
		Users:         userService,
		Subscriptions: subscription.New(repo, nil, time.Minute, logger),
		Reports:       report.New(userService, txService),
		JWT:           maker,
		WriteLimiter:  rate.NewLimiter(rate.Inf, 1),
	})
	return r, maker
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes_TransactionLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/transactions",
		`{"id":"tx-1","userId":"user_matteo","amount":12.50,"currency":"EUR","category":"Ristoranti","type":"EXPENSE","date":"2024-03-01"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/transactions",
		`{"id":"tx-1","userId":"user_matteo","amount":13,"category":"Ristoranti","type":"EXPENSE","date":"2024-03-01","paymentMethod":"CASH"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/transactions?userId=user_matteo", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.PaymentCash, list[0].PaymentMethod)

	w = do(t, h, http.MethodGet, "/api/transactions?userId=user_diana", "", "")
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodDelete, "/api/transactions/does-not-exist", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = do(t, h, http.MethodDelete, "/api/transactions/tx-1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodGet, "/api/transactions?userId=user_matteo", "", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRoutes_LoginAndProfileUpdate(t *testing.T) {
	h, _ := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/login", `{"userId":"user_matteo","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/login", `{"userId":"user_matteo","password":"1234"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	body := `{"name":"Matteo","telegramChatId":"42","preferences":{"currency":"USD","language":"en"}}`
	w = do(t, h, http.MethodPut, "/api/users/user_matteo", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPut, "/api/users/user_diana", body, resp.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, h, http.MethodPut, "/api/users/user_matteo", body, resp.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/users/user_matteo", "", "")
	assert.Contains(t, w.Body.String(), `"telegramChatId":"42"`)
	assert.Contains(t, w.Body.String(), `"currency":"USD"`)

	w = do(t, h, http.MethodGet, "/api/users/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_ReportAndSubscriptions(t *testing.T) {
	h, _ := newTestRouter(t)

	today := time.Now().Format(time.DateOnly)
	w := do(t, h, http.MethodPost, "/api/transactions",
		`{"userId":"user_matteo","amount":20,"category":"Stipendio","type":"INCOME","date":"`+today+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/report?userId=user_matteo&period=DAILY", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "+20.00 €")

	w = do(t, h, http.MethodPost, "/api/subscriptions",
		`{"id":"s1","userId":"user_matteo","name":"Netflix","amount":9.99,"nextDueDate":"2030-01-01"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/subscriptions?userId=user_matteo", "", "")
	assert.Contains(t, w.Body.String(), `"name":"Netflix"`)

	w = do(t, h, http.MethodDelete, "/api/subscriptions/s1", "", "")
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}
