package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"gradebook/internal/logger"
)

// Logger writes one JSON line per request with request_id, method, path,
// status and latency in milliseconds.
func Logger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		level := "info"
		switch {
		case status >= fiber.StatusInternalServerError:
			level = "error"
		case status >= fiber.StatusBadRequest:
			level = "warn"
		}

		log.Log(logger.Fields{
			"component":  "http",
			"event":      "http_request",
			"level":      level,
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		})
		return err
	}
}

func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logger.New(w, loc))
}
