// Package read реализует HTTP-обработчик получения профиля пользователя.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения профиля.
type Service interface {
	Get(ctx context.Context, id string) (models.User, error)
}

// Handler обрабатывает GET /api/users/{id}.
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
// @Summary Профиль пользователя
// @Tags Users
// @Produce json
// @Param id path string true "Идентификатор"
// @Success 200 {object} models.User
// @Failure 404 {object} response.ErrorResponse
// @Router /api/users/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	u, err := h.service.Get(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		log.Info("user not found", slog.String("id", id))
		response.Fail(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Error("failed to read user", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not read user")
		return
	}

	response.JSON(w, r, http.StatusOK, u)
}
