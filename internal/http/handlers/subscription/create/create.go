// Package create реализует HTTP-обработчик создания подписки.
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

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, dto models.SubscriptionDTO) (models.Subscription, error)
}

// Handler управляет HTTP-запросами на создание подписок.
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
// @Summary Создать подписку
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body models.SubscriptionDTO true "Подписка"
// @Success 200 {object} models.Subscription
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.SubscriptionDTO
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

	sub, err := h.service.Create(r.Context(), req)
	if errors.Is(err, models.ErrInvalidInput) {
		log.Warn("invalid subscription", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error("failed to create subscription", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not create subscription")
		return
	}

	log.Info("subscription created", slog.String("id", sub.ID))
	response.JSON(w, r, http.StatusOK, sub)
}
