package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"gradebook/internal/errs"
	"gradebook/internal/http/middleware"
)

type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestIDFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return v
	}
	return ""
}

// writeError writes the standard error body. message must be safe to show
// to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// writeStorageError maps the storage error kinds to HTTP statuses. Messages
// of typed errors only carry entity names, ids and field names; anything
// else is reported as an internal error.
func writeStorageError(c *fiber.Ctx, err error) error {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case errs.KindNotFound:
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errs.KindConflict:
		return writeError(c, fiber.StatusConflict, "CONFLICT", err.Error())
	case errs.KindNotInitialized, errs.KindBackendConstruction, errs.KindMigration:
		return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage unavailable")
	case errs.KindPersistence:
		return writeError(c, fiber.StatusServiceUnavailable, "NOT_PERSISTED", "write applied but not saved")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler standardizes errors that escape route handlers.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "payload too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
