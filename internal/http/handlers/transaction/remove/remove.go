package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Remove(ctx context.Context, id string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить транзакцию
// @Tags Transactions
// @Produce json
// @Param id path string true "Идентификатор"
// @Success 200 {object} response.Success
// @Router /api/transactions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.transaction.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if id == "" {
		log.Warn("empty id")
		response.Fail(w, r, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		log.Error("failed to delete transaction", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	log.Info("transaction deleted", slog.String("id", id))
	response.JSON(w, r, http.StatusOK, response.Success{Success: true})
}
