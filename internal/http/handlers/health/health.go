package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
)

// Checker проверяет готовность хранилища.
type Checker interface {
	CheckDatabaseReady(ctx context.Context) error
}

type Handler struct {
	log     *slog.Logger
	checker Checker
}

func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{
		log:     log,
		checker: checker,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if h.checker != nil {
		if err := h.checker.CheckDatabaseReady(r.Context()); err != nil {
			h.log.Error("database not ready", slog.String("op", op), sl.Err(err))
			response.Fail(w, r, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
