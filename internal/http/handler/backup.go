package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"gradebook/internal/service"
)

const maxPresignExpiry = 7 * 24 * time.Hour

// CreateBackup godoc
// @Summary Upload a database snapshot
// @Tags backups
// @Produce json
// @Success 201 {object} service.Backup
// @Router /backups [post]
func CreateBackup(svc service.BackupService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := svc.Backup(c.UserContext())
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(b)
	}
}

// LatestBackup presigns the newest snapshot; expiry defaults to 15m.
func LatestBackup(svc service.BackupService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		expiry, err := time.ParseDuration(c.Query("expiry", "15m"))
		if err != nil || expiry <= 0 || expiry > maxPresignExpiry {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "invalid expiry")
		}
		b, err := svc.Latest(c.UserContext(), expiry)
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.JSON(b)
	}
}
