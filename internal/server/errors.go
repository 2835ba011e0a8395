package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/internal/common"
)

// errorHandler is the application-level fallback: fiber errors keep their
// code, anything else becomes a structured 500 with a correlation id.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		errorID := uuid.NewString()
		logger.Error("unhandled error",
			"error_id", errorID,
			"endpoint", c.Path(),
			"method", c.Method(),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":      "INTERNAL_ERROR",
				"message":   "An unexpected error occurred. Please try again later.",
				"error_id":  errorID,
				"timestamp": time.Now().UTC(),
			},
		})
	}
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrOCRUnavailable),
		errors.Is(err, common.ErrReasoningUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, common.ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes the mapped error response.
func fail(c *fiber.Ctx, logger *slog.Logger, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		logger.Error("request failed", "endpoint", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
