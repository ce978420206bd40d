// Package report реализует HTTP-обработчик текстового отчёта за скользящее окно.
package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/spesesmart/internal/http/response"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Builder строит отчёт.
type Builder interface {
	Build(ctx context.Context, userID string, p models.Period, now time.Time) (string, error)
}

// Response — тело ответа.
type Response struct {
	Text string `json:"text"`
}

// Handler обрабатывает GET /api/report?userId=&period=.
type Handler struct {
	log     *slog.Logger
	builder Builder
}

// New создает новый Handler.
func New(log *slog.Logger, builder Builder) *Handler {
	return &Handler{log: log, builder: builder}
}

// ServeHTTP godoc
// @Summary Отчёт
// @Tags Report
// @Produce json
// @Param userId query string true "Идентификатор пользователя"
// @Param period query string false "DAILY, WEEKLY, MONTHLY, YEARLY, ALL"
// @Success 200 {object} Response
// @Router /api/report [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.report"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		response.Fail(w, r, http.StatusBadRequest, "userId required")
		return
	}

	p := models.PeriodWeekly
	if raw := q.Get("period"); raw != "" {
		parsed, err := models.ParsePeriod(raw)
		if err != nil {
			response.Fail(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p = parsed
	}

	text, err := h.builder.Build(r.Context(), userID, p, time.Now())
	if errors.Is(err, models.ErrNotFound) {
		response.Fail(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Error("failed to build report", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not build report")
		return
	}
	response.JSON(w, r, http.StatusOK, Response{Text: text})
}
