package middleware

import (
	"errors"

	"matchmap/internal/pkg/logger"
	"matchmap/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
	Cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewAppError(statusCode int, message string, data interface{}, cause error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Data: data, Cause: cause}
}

type ErrorMiddleware struct {
	logger logger.Logger
}

func NewErrorMiddleware(log logger.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "http"})}
}

func (m *ErrorMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("panic recovered", map[string]interface{}{
					"panic":  r,
					"method": c.Method(),
					"path":   c.Path(),
				})
				err = response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
			}
		}()

		err = c.Next()
		if err == nil {
			return nil
		}

		status, msg, data := normalizeError(err)
		if status >= fiber.StatusInternalServerError {
			m.logger.Error("request failed", map[string]interface{}{
				"rid":    c.GetRespHeader("X-Request-ID"),
				"method": c.Method(),
				"path":   c.Path(),
				"error":  err.Error(),
			})
		}
		return response.Error(c, status, msg, data)
	}
}

// normalizeError maps err to what the client may see. Anything that is not
// an AppError or fiber.Error, and every 5xx, collapses to a bare 500.
func normalizeError(err error) (status int, msg string, data interface{}) {
	var appErr *AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		status, msg, data = appErr.StatusCode, appErr.Message, appErr.Data
	case errors.As(err, &fiberErr):
		status, msg = fiberErr.Code, fiberErr.Message
	}

	if status < 400 || status >= fiber.StatusInternalServerError {
		return fiber.StatusInternalServerError, response.MessageInternalServerError, nil
	}
	if msg == "" {
		msg = response.MessageFor(status)
	}
	return status, msg, data
}
