// Package list реализует HTTP-обработчик получения подписок пользователя.
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

type Service interface {
	List(ctx context.Context, userID string) ([]models.Subscription, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список подписок
// @Tags Subscriptions
// @Produce json
// @Param userId query string true "Идентификатор пользователя"
// @Success 200 {array} models.Subscription
// @Router /api/subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		response.Fail(w, r, http.StatusBadRequest, "userId required")
		return
	}

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not list subscriptions")
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}
