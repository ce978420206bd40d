// Package update реализует HTTP-обработчик обновления профиля.
// Маршрут защищён сессионным токеном: изменить можно только свой профиль.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Service описывает интерфейс бизнес-логики обновления профиля.
type Service interface {
	Update(ctx context.Context, id string, dto models.UserDTO) (models.User, error)
}

// Handler обрабатывает PUT /api/users/{id}.
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
// @Summary Обновить профиль
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Идентификатор"
// @Param request body models.UserDTO true "Профиль"
// @Success 200 {object} models.User
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /api/users/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.UserDTO
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

	id := chi.URLParam(r, "id")
	u, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		log.Error("failed to update user", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not update user")
		return
	}

	log.Info("user updated", slog.String("id", id))
	response.JSON(w, r, http.StatusOK, u)
}
