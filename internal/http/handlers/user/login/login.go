// Package login реализует HTTP-обработчик входа пользователя.
// Пароль сравнивается как есть, в ответ выдаётся сессионный токен и профиль.
package login

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

// Service описывает интерфейс входа.
type Service interface {
	Login(ctx context.Context, id, password string) (string, models.User, error)
}

// Request — тело запроса на вход.
type Request struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password"`
}

// Response — тело успешного ответа.
type Response struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Handler обрабатывает POST /api/login.
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
// @Summary Вход
// @Tags Users
// @Accept json
// @Produce json
// @Param request body Request true "Учётные данные"
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse
// @Router /api/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.login"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.Fail(w, r, http.StatusUnprocessableEntity, "userId required")
		return
	}

	token, u, err := h.service.Login(r.Context(), req.UserID, req.Password)
	if errors.Is(err, models.ErrInvalidCredentials) {
		log.Info("invalid credentials", slog.String("user_id", req.UserID))
		response.Fail(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		log.Error("failed to login", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not login")
		return
	}

	log.Info("user logged in", slog.String("user_id", u.ID))
	response.JSON(w, r, http.StatusOK, Response{Token: token, User: u})
}
