// Package response содержит вспомогательные функции для формирования
// JSON-ответов HTTP-обработчиков. Успешные ответы — сама сущность или массив,
// ошибки — объект {"status":"Error","error":"..."}.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// Success — тело ответа операций без возвращаемой сущности.
type Success struct {
	Success bool `json:"success"`
}

// StatusError — значение статуса для ответа с ошибкой.
const StatusError = "Error"

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует ErrorResponse на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Error(strings.Join(errsMsgs, ", "))
}

// JSON пишет v с кодом status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Fail пишет ErrorResponse с кодом status.
func Fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, Error(msg))
}
