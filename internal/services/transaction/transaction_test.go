package transaction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) UpsertTransaction(ctx context.Context, tx models.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *RepoMock) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *RepoMock) ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *RepoMock) DeleteTransaction(ctx context.Context, id string) (string, bool, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Bool(1), args.Error(2)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, keys ...string) error {
	return m.Called(keys).Error(0)
}

func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newService(repo *RepoMock, cache *CacheMock, now time.Time) *Service {
	s := New(repo, cache, time.Hour, NewNoopLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestService_List(t *testing.T) {
	cachedList := []models.Transaction{{ID: "cached", UserID: "u1"}}
	dbList := []models.Transaction{{ID: "db", UserID: "u1"}}

	tests := []struct {
		name       string
		setupMocks func(repo *RepoMock, cache *CacheMock)
		want       []models.Transaction
		wantErr    bool
	}{
		{
			name: "cache hit",
			setupMocks: func(repo *RepoMock, cache *CacheMock) {
				cache.On("Get", "cache:transactions:u1", mock.Anything).
					Run(func(args mock.Arguments) {
						*(args.Get(1).(*[]models.Transaction)) = cachedList
					}).Return(true, nil).Once()
			},
			want: cachedList,
		},
		{
			name: "cache miss reads repository and fills cache",
			setupMocks: func(repo *RepoMock, cache *CacheMock) {
				cache.On("Get", "cache:transactions:u1", mock.Anything).Return(false, nil).Once()
				repo.On("ListTransactions", mock.Anything, "u1").Return(dbList, nil).Once()
				cache.On("Set", "cache:transactions:u1", dbList, time.Hour).Return(nil).Once()
			},
			want: dbList,
		},
		{
			name: "cache failure does not fail request",
			setupMocks: func(repo *RepoMock, cache *CacheMock) {
				cache.On("Get", "cache:transactions:u1", mock.Anything).Return(false, errors.New("redis down")).Once()
				repo.On("ListTransactions", mock.Anything, "u1").Return(dbList, nil).Once()
				cache.On("Set", "cache:transactions:u1", dbList, time.Hour).Return(errors.New("redis down")).Once()
			},
			want: dbList,
		},
		{
			name: "repository error",
			setupMocks: func(repo *RepoMock, cache *CacheMock) {
				cache.On("Get", "cache:transactions:u1", mock.Anything).Return(false, nil).Once()
				repo.On("ListTransactions", mock.Anything, "u1").Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			tt.setupMocks(repo, cache)

			got, err := newService(repo, cache, time.Now()).List(context.Background(), "u1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestService_Create(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("-7.5")

	t.Run("applies defaults and generates id", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("UpsertTransaction", mock.Anything, mock.MatchedBy(func(tx models.Transaction) bool {
			return tx.ID != "" &&
				tx.UserID == "u1" &&
				tx.Amount.Equal(decimal.RequireFromString("7.5")) &&
				tx.PaymentMethod == models.PaymentCard &&
				tx.Description == "" &&
				tx.Date.Equal(now)
		})).Return(nil).Once()
		cache.On("Invalidate", []string{"cache:transactions:u1"}).Return(nil).Once()

		tx, err := newService(repo, cache, now).Create(context.Background(), models.TransactionDTO{
			UserID:   "u1",
			Amount:   &amount,
			Category: "Svago",
			Type:     "EXPENSE",
		}, "api")
		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("keeps provided id", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("UpsertTransaction", mock.Anything, mock.MatchedBy(func(tx models.Transaction) bool {
			return tx.ID == "fixed"
		})).Return(nil).Twice()
		cache.On("Invalidate", []string{"cache:transactions:u1"}).Return(nil).Twice()

		svc := newService(repo, cache, now)
		dto := models.TransactionDTO{ID: "fixed", UserID: "u1", Amount: &amount, Category: "Svago", Type: "EXPENSE"}
		first, err := svc.Create(context.Background(), dto, "api")
		require.NoError(t, err)
		second, err := svc.Create(context.Background(), dto, "api")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("invalid input", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		_, err := newService(repo, cache, now).Create(context.Background(), models.TransactionDTO{
			UserID:   "u1",
			Amount:   &amount,
			Category: "Svago",
			Type:     "SOMETHING",
		}, "api")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		repo.AssertNotCalled(t, "UpsertTransaction", mock.Anything, mock.Anything)
	})
}

func TestService_Remove(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("DeleteTransaction", mock.Anything, "tx1").Return("u1", true, nil).Once()
		cache.On("Invalidate", []string{"cache:transactions:u1"}).Return(nil).Once()

		require.NoError(t, newService(repo, cache, time.Now()).Remove(context.Background(), "tx1"))
		cache.AssertExpectations(t)
	})

	t.Run("unknown id succeeds", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("DeleteTransaction", mock.Anything, "missing").Return("", false, nil).Once()

		require.NoError(t, newService(repo, cache, time.Now()).Remove(context.Background(), "missing"))
		cache.AssertNotCalled(t, "Invalidate", mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("DeleteTransaction", mock.Anything, "tx1").Return("", false, errors.New("db error")).Once()

		assert.Error(t, newService(repo, cache, time.Now()).Remove(context.Background(), "tx1"))
	})
}
