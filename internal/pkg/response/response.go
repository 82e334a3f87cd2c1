// Package response renders the {status, message, data} envelope shared by
// every JSON endpoint.
package response

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
)

type SemanticResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

const (
	MessageOK                  = "ok"
	MessageBadRequest          = "bad request"
	MessageUnauthorized        = "unauthorized"
	MessagePaymentRequired     = "payment required"
	MessageForbidden           = "forbidden"
	MessageNotFound            = "not found"
	MessageConflict            = "conflict"
	MessageUnprocessableEntity = "unprocessable entity"
	MessageInternalServerError = "internal server error"
	MessageError               = "error"
)

// Success writes a 2xx envelope. Any other status is coerced to 200.
func Success(c fiber.Ctx, status int, message string, data interface{}) error {
	if status < 200 || status > 299 {
		status = fiber.StatusOK
	}
	return write(c, status, message, data)
}

// Error writes a 4xx or 5xx envelope. A 500 never carries a caller-supplied
// message or data.
func Error(c fiber.Ctx, status int, message string, data interface{}) error {
	if status < 400 || status > 599 {
		status = fiber.StatusInternalServerError
	}
	if status == fiber.StatusInternalServerError {
		message, data = MessageInternalServerError, nil
	}
	return write(c, status, message, data)
}

// MessageFor is the default message for a status code.
func MessageFor(status int) string {
	switch {
	case status == fiber.StatusOK:
		return MessageOK
	case status >= 500:
		return MessageInternalServerError
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return MessageError
}

func write(c fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = MessageFor(status)
	}
	return c.Status(status).JSON(SemanticResponse{Status: status, Message: message, Data: data})
}
