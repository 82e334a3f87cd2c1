package middleware

import (
	"strconv"
	"time"

	"matchmap/internal/observability"
	"matchmap/internal/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type AccessLogMiddleware struct {
	logger logger.Logger
}

func NewAccessLogMiddleware(log logger.Logger) *AccessLogMiddleware {
	return &AccessLogMiddleware{logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "access_log"})}
}

// Middleware must run outside the error middleware so the status it records
// is the one actually sent. Only the path is logged because file URLs carry
// their signature in the query.
func (m *AccessLogMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("X-Request-ID", rid)

		err := c.Next()

		status := c.Response().StatusCode()
		observability.HTTPRequests.WithLabelValues(c.Method(), strconv.Itoa(status)).Inc()

		m.logger.Info("http access", map[string]interface{}{
			"rid":        rid,
			"ip":         c.IP(),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    time.Since(start).String(),
			"req_bytes":  c.Request().Header.ContentLength(),
			"resp_bytes": len(c.Response().Body()),
			"ua":         c.Get("User-Agent"),
		})

		return err
	}
}
