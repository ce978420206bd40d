// Package create реализует HTTP-обработчик создания транзакции.
//
// Handler принимает JSON с данными транзакции, валидирует обязательные поля
// и сохраняет её через сервис. Повторная отправка с тем же id обновляет запись.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Service описывает интерфейс бизнес-логики создания транзакции.
type Service interface {
	Create(ctx context.Context, dto models.TransactionDTO, source string) (models.Transaction, error)
}

// Handler управляет HTTP-запросами на создание транзакций.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать транзакцию
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body models.TransactionDTO true "Транзакция"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/transactions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.transaction.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			response.JSON(w, r, http.StatusUnprocessableEntity, response.ValidationError(vErrs))
			return
		}
		response.Fail(w, r, http.StatusUnprocessableEntity, "invalid request")
		return
	}

	tx, err := h.service.Create(r.Context(), req, "api")
	if errors.Is(err, models.ErrInvalidInput) {
		log.Warn("invalid transaction", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error("failed to create transaction", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not create transaction")
		return
	}

	log.Info("transaction created", slog.String("id", tx.ID))
	response.JSON(w, r, http.StatusOK, tx)
}
