package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"gradebook/internal/database"
)

type HandleProvider interface {
	StorageHandle() (database.Handle, error)
}

// HealthCheck reports healthy when storage is initialized and answers a
// ping within two seconds.
func HealthCheck(p HandleProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h, err := p.StorageHandle()
		if err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "storage not initialized")
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.JSON(fiber.Map{"status": "healthy", "target": string(h.Target())})
	}
}

func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
