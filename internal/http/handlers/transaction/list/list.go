// Package list реализует HTTP-обработчик получения транзакций пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения транзакций.
type Service interface {
	List(ctx context.Context, userID string) ([]models.Transaction, error)
}

// Handler обрабатывает GET /api/transactions?userId=.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список транзакций
// @Tags Transactions
// @Produce json
// @Param userId query string true "Идентификатор пользователя"
// @Success 200 {array} models.Transaction
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/transactions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.transaction.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		log.Warn("userId is missing")
		response.Fail(w, r, http.StatusBadRequest, "userId required")
		return
	}

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		log.Error("failed to list transactions", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not list transactions")
		return
	}

	log.Debug("transactions listed", slog.Int("count", len(list)))
	response.JSON(w, r, http.StatusOK, list)
}
