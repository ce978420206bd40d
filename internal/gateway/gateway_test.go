package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/spesesmart/internal/localcache"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer — минимальная реализация REST API на карте.
type fakeServer struct {
	mu      sync.Mutex
	txs     map[string]models.TransactionDTO
	subs    map[string]models.SubscriptionDTO
	users   map[string]models.UserDTO
	posted  []string
	auth    string
	fail    int
	hang    bool
	loginOK bool
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{
		txs:   map[string]models.TransactionDTO{},
		subs:  map[string]models.SubscriptionDTO{},
		users: map[string]models.UserDTO{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		out := []models.TransactionDTO{}
		for _, d := range fs.txs {
			if d.UserID == r.URL.Query().Get("userId") {
				out = append(out, d)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("POST /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		var d models.TransactionDTO
		_ = json.NewDecoder(r.Body).Decode(&d)
		fs.mu.Lock()
		fs.txs[d.ID] = d
		fs.posted = append(fs.posted, d.ID)
		fs.mu.Unlock()
		_ = json.NewEncoder(w).Encode(d)
	})
	mux.HandleFunc("DELETE /api/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		fs.mu.Lock()
		delete(fs.txs, r.PathValue("id"))
		fs.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("GET /api/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		out := []models.SubscriptionDTO{}
		for _, d := range fs.subs {
			out = append(out, d)
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("POST /api/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		var d models.SubscriptionDTO
		_ = json.NewDecoder(r.Body).Decode(&d)
		fs.mu.Lock()
		fs.subs[d.ID] = d
		fs.mu.Unlock()
		_ = json.NewEncoder(w).Encode(d)
	})
	mux.HandleFunc("DELETE /api/subscriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		fs.mu.Lock()
		delete(fs.subs, r.PathValue("id"))
		fs.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		fs.mu.Lock()
		ok := fs.loginOK
		fs.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"Error","error":"invalid credentials"}`))
			return
		}
		u := models.SeedUsers()[0]
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "jwt-token", "user": u})
	})
	mux.HandleFunc("PUT /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"Error","error":"missing token"}`))
			return
		}
		var d models.UserDTO
		_ = json.NewDecoder(r.Body).Decode(&d)
		fs.mu.Lock()
		fs.auth = auth
		fs.users[r.PathValue("id")] = d
		fs.mu.Unlock()
		_ = json.NewEncoder(w).Encode(d)
	})
	mux.HandleFunc("GET /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if fs.guard(w, r) {
			return
		}
		fs.mu.Lock()
		d, ok := fs.users[r.PathValue("id")]
		fs.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(d)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeServer) update(fn func(fs *fakeServer)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fn(fs)
}

func (fs *fakeServer) postedIDs() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.posted...)
}

func (fs *fakeServer) hasTransaction(id string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.txs[id]
	return ok
}

func (fs *fakeServer) authHeader() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.auth
}

func (fs *fakeServer) guard(w http.ResponseWriter, r *http.Request) bool {
	fs.mu.Lock()
	hang, fail := fs.hang, fs.fail
	fs.mu.Unlock()
	if hang {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		return true
	}
	if fail != 0 {
		w.WriteHeader(fail)
		_, _ = w.Write([]byte(`{"status":"Error","error":"boom"}`))
		return true
	}
	return false
}

func newTestGateway(t *testing.T, url string) (*Gateway, *localcache.Store) {
	t.Helper()
	store, err := localcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	g := New(NewClient(url, 200*time.Millisecond), store, nil, NewNoopLogger())
	return g, store
}

func ltx(id, userID string, pm models.PaymentMethod, day int) models.Transaction {
	return models.Transaction{
		ID:            id,
		UserID:        userID,
		Date:          time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("5"),
		Currency:      models.EUR,
		Category:      "Alimentari",
		Type:          models.TypeExpense,
		PaymentMethod: pm,
	}
}

func TestListTransactionsFallsBackToOwnCachedRecords(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, store := newTestGateway(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, store.PutTransaction(ctx, ltx("a", "u1", models.PaymentCard, 1)))
	require.NoError(t, store.PutTransaction(ctx, ltx("b", "u2", models.PaymentCard, 2)))
	require.NoError(t, store.PutTransaction(ctx, ltx("c", "u1", models.PaymentCash, 3)))
	fs.update(func(fs *fakeServer) { fs.hang = true })

	start := time.Now()
	got, err := g.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "remote call must be bounded by the timeout")

	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID, "newest first")
	assert.Equal(t, "a", got[1].ID)
	for _, tx := range got {
		assert.Equal(t, "u1", tx.UserID)
	}
}

func TestListTransactionsReconcilesAndPersists(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, store := newTestGateway(t, srv.URL)
	ctx := context.Background()

	// Ранее подтверждённые сервером записи.
	require.NoError(t, store.ReplaceTransactions(ctx, "u1", []models.Transaction{
		ltx("a", "u1", models.PaymentCash, 1),
		ltx("deleted-remotely", "u1", models.PaymentCard, 2),
	}))
	require.NoError(t, store.ReplaceTransactions(ctx, "u2", []models.Transaction{ltx("other", "u2", models.PaymentCard, 2)}))

	remoteA := ltx("a", "u1", models.PaymentCard, 1)
	remoteA.Amount = decimal.RequireFromString("9")
	noMethod := ltx("b", "u1", models.PaymentCard, 4).DTO()
	noMethod.PaymentMethod = nil
	noMethod.Description = nil
	fs.update(func(fs *fakeServer) {
		fs.txs["a"] = remoteA.DTO()
		fs.txs["b"] = noMethod
	})

	got, err := g.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, models.PaymentCard, got[0].PaymentMethod, "missing method defaults to CARD")
	assert.Equal(t, "", got[0].Description)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, models.PaymentCash, got[1].PaymentMethod, "local CASH wins")
	assert.True(t, got[1].Amount.Equal(decimal.NewFromInt(9)), "other fields come from the server")

	cached, err := store.Transactions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	others, err := store.Transactions(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, others, 1, "other users' records are untouched")
}

func TestWritesAreLocalFirst(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, store := newTestGateway(t, srv.URL)
	ctx := context.Background()
	fs.update(func(fs *fakeServer) { fs.fail = http.StatusInternalServerError })

	amount := decimal.RequireFromString("12.50")
	tx, err := g.CreateTransaction(ctx, models.TransactionDTO{
		UserID:   "u1",
		Amount:   &amount,
		Category: "Ristoranti",
		Type:     "EXPENSE",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, models.PaymentCard, tx.PaymentMethod)

	cached, err := store.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Empty(t, fs.postedIDs())

	require.NoError(t, g.DeleteTransaction(ctx, tx.ID))
	cached, err = store.Transactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestCreateTransactionReplicates(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, _ := newTestGateway(t, srv.URL)

	amount := decimal.RequireFromString("3")
	tx, err := g.CreateTransaction(context.Background(), models.TransactionDTO{
		ID:       "fixed",
		UserID:   "u1",
		Amount:   &amount,
		Category: "Svago",
		Type:     "expense",
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", tx.ID)
	assert.Equal(t, []string{"fixed"}, fs.postedIDs())
}

func TestLogin(t *testing.T) {
	t.Run("remote rejects", func(t *testing.T) {
		_, srv := newFakeServer(t)
		g, _ := newTestGateway(t, srv.URL)

		_, err := g.Login(context.Background(), "user_matteo", "1234")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("remote accepts and token is used for profile update", func(t *testing.T) {
		fs, srv := newFakeServer(t)
		fs.update(func(fs *fakeServer) { fs.loginOK = true })
		g, _ := newTestGateway(t, srv.URL)
		ctx := context.Background()

		u, err := g.Login(ctx, "user_matteo", "1234")
		require.NoError(t, err)
		assert.Equal(t, "user_matteo", u.ID)

		id, err := g.Session(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user_matteo", id)

		chat := "42"
		updated, err := g.UpdateUser(ctx, "user_matteo", models.UserDTO{Name: "Matteo R.", TelegramChatID: &chat})
		require.NoError(t, err)
		assert.Equal(t, "1234", updated.Password)
		assert.Equal(t, "42", updated.TelegramChatID)
		assert.Equal(t, "Bearer jwt-token", fs.authHeader())
	})

	t.Run("offline falls back to seed users", func(t *testing.T) {
		fs, srv := newFakeServer(t)
		fs.update(func(fs *fakeServer) { fs.fail = http.StatusBadGateway })
		g, _ := newTestGateway(t, srv.URL)
		ctx := context.Background()

		u, err := g.Login(ctx, "user_diana", "1234")
		require.NoError(t, err)
		assert.Equal(t, models.PLN, u.Preferences.Currency)

		_, err = g.Login(ctx, "user_diana", "nope")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)

		_, err = g.Login(ctx, "ghost", "1234")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)

		require.NoError(t, g.Logout(ctx))
		_, err = g.Session(ctx)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestGetUserFallsBackToSeed(t *testing.T) {
	_, srv := newFakeServer(t)
	g, _ := newTestGateway(t, srv.URL)

	u, err := g.GetUser(context.Background(), "user_matteo")
	require.NoError(t, err)
	assert.Equal(t, "Matteo", u.Name)

	_, err = g.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)

	users, err := g.Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestRefreshMaterializesDueSubscriptions(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, store := newTestGateway(t, srv.URL)
	ctx := context.Background()
	g.now = func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }

	amount := decimal.RequireFromString("9.99")
	sub := models.SubscriptionDTO{
		ID:          "s1",
		UserID:      "u1",
		Name:        "Netflix",
		Amount:      &amount,
		Currency:    "EUR",
		Category:    "Svago",
		Frequency:   "MONTHLY",
		NextDueDate: "2025-02-01T00:00:00Z",
	}
	fs.update(func(fs *fakeServer) { fs.subs["s1"] = sub })

	got, err := g.Refresh(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2, "february and march charges")
	assert.Equal(t, "Netflix", got[0].Description)
	assert.Len(t, fs.postedIDs(), 2)

	again, err := g.Refresh(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, again, 2, "re-running does not duplicate charges")

	subs, err := store.Subscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "2025-04-01T00:00:00Z", subs[0].NextDueDate)
}

func TestOfflineWriteSurvivesReconnect(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, store := newTestGateway(t, srv.URL)
	ctx := context.Background()
	fs.update(func(fs *fakeServer) { fs.fail = http.StatusServiceUnavailable })

	amount := decimal.RequireFromString("4.20")
	tx, err := g.CreateTransaction(ctx, models.TransactionDTO{
		UserID:   "u1",
		Amount:   &amount,
		Category: "Trasporti",
		Type:     "EXPENSE",
	})
	require.NoError(t, err)
	assert.Empty(t, fs.postedIDs())

	fs.update(func(fs *fakeServer) { fs.fail = 0 })

	got, err := g.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1, "offline write is kept after the server comes back")
	assert.Equal(t, tx.ID, got[0].ID)
	assert.Equal(t, []string{tx.ID}, fs.postedIDs(), "pending write is resent")

	unsynced, deleted, err := store.PendingTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, unsynced)
	assert.Empty(t, deleted)

	got, err = g.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, fs.postedIDs(), 1, "confirmed writes are not resent")
}

func TestOfflineDeleteIsReplayed(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, store := newTestGateway(t, srv.URL)
	ctx := context.Background()

	amount := decimal.RequireFromString("8")
	tx, err := g.CreateTransaction(ctx, models.TransactionDTO{
		UserID:   "u1",
		Amount:   &amount,
		Category: "Casa",
		Type:     "EXPENSE",
	})
	require.NoError(t, err)
	require.True(t, fs.hasTransaction(tx.ID))

	fs.update(func(fs *fakeServer) { fs.fail = http.StatusTooManyRequests })
	require.NoError(t, g.DeleteTransaction(ctx, tx.ID))
	assert.True(t, fs.hasTransaction(tx.ID))

	fs.update(func(fs *fakeServer) { fs.fail = 0 })

	got, err := g.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got, "server copy does not resurrect a local delete")
	assert.False(t, fs.hasTransaction(tx.ID), "pending delete is resent")

	_, deleted, err := store.PendingTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestDeleteUnknownTransactionIsNoop(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, store := newTestGateway(t, srv.URL)
	ctx := context.Background()

	keep := ltx("keep", "u1", models.PaymentCard, 5)
	fs.update(func(fs *fakeServer) { fs.txs["keep"] = keep.DTO() })
	require.NoError(t, store.ReplaceTransactions(ctx, "u1", []models.Transaction{keep}))

	require.NoError(t, g.DeleteTransaction(ctx, "ghost"))

	unsynced, deleted, err := store.PendingTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, unsynced)
	assert.Empty(t, deleted)
	assert.True(t, fs.hasTransaction("keep"))

	got, err := g.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].ID)
	assert.Empty(t, fs.postedIDs())
}

func TestOfflineSubscriptionSurvivesReconnect(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, _ := newTestGateway(t, srv.URL)
	ctx := context.Background()
	fs.update(func(fs *fakeServer) { fs.fail = http.StatusBadGateway })

	amount := decimal.RequireFromString("10.99")
	sub, err := g.CreateSubscription(ctx, models.SubscriptionDTO{
		UserID:      "u1",
		Name:        "Spotify",
		Amount:      &amount,
		NextDueDate: "2030-01-01",
	})
	require.NoError(t, err)

	fs.update(func(fs *fakeServer) { fs.fail = 0 })

	subs, err := g.ListSubscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.ID, subs[0].ID)

	fs.update(func(fs *fakeServer) {
		_, ok := fs.subs[sub.ID]
		assert.True(t, ok, "pending subscription is resent")
	})

	require.NoError(t, g.DeleteSubscription(ctx, sub.ID))
	subs, err = g.ListSubscriptions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, subs)
	fs.update(func(fs *fakeServer) { assert.Empty(t, fs.subs) })
}

func TestOfflineProfileEditSurvivesReconnect(t *testing.T) {
	fs, srv := newFakeServer(t)
	g, _ := newTestGateway(t, srv.URL)
	ctx := context.Background()
	fs.update(func(fs *fakeServer) { fs.fail = http.StatusServiceUnavailable })

	_, err := g.Login(ctx, "user_matteo", "1234")
	require.NoError(t, err)
	_, err = g.UpdateUser(ctx, "user_matteo", models.UserDTO{Name: "Matt"})
	require.NoError(t, err)

	fs.update(func(fs *fakeServer) {
		fs.fail = 0
		fs.users["user_matteo"] = models.SeedUsers()[0].DTO()
	})

	// Офлайн-сессия без токена: сервер отклоняет правку, она остаётся локальной.
	u, err := g.GetUser(ctx, "user_matteo")
	require.NoError(t, err)
	assert.Equal(t, "Matt", u.Name)
	u, err = g.GetUser(ctx, "user_matteo")
	require.NoError(t, err)
	assert.Equal(t, "Matt", u.Name)

	fs.update(func(fs *fakeServer) { fs.loginOK = true })
	u, err = g.Login(ctx, "user_matteo", "1234")
	require.NoError(t, err)
	assert.Equal(t, "Matt", u.Name)
	assert.Equal(t, "Bearer jwt-token", fs.authHeader())
	fs.update(func(fs *fakeServer) { assert.Equal(t, "Matt", fs.users["user_matteo"].Name) })

	// Правка подтверждена: теперь значения снова приходят с сервера.
	fs.update(func(fs *fakeServer) {
		d := fs.users["user_matteo"]
		d.Name = "Matteo R."
		fs.users["user_matteo"] = d
	})
	u, err = g.GetUser(ctx, "user_matteo")
	require.NoError(t, err)
	assert.Equal(t, "Matteo R.", u.Name)
}
