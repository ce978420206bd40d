package update

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, id string, dto models.UserDTO) (models.User, error) {
	args := m.Called(ctx, id, dto)
	return args.Get(0).(models.User), args.Error(1)
}

func TestUpdateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("обновление профиля", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Update", mock.Anything, "user_matteo", mock.MatchedBy(func(d models.UserDTO) bool {
			return d.Name == "Matteo" && d.TelegramChatID != nil && *d.TelegramChatID == "555"
		})).Return(models.User{ID: "user_matteo", Name: "Matteo", TelegramChatID: "555"}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/users/user_matteo",
			strings.NewReader(`{"name":"Matteo","telegramChatId":"555"}`))
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", "user_matteo")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"telegramChatId":"555"`)
		svc.AssertExpectations(t)
	})

	t.Run("без имени", func(t *testing.T) {
		svc := new(MockService)
		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/users/x", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "field Name is a required field")
	})
}
