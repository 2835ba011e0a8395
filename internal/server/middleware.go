package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

// RequestContext copies the request id assigned by the requestid middleware
// into the request context so pipeline logs correlate with responses.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			c.SetUserContext(common.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// ActivityLog records one row per API call. A lost activity row never fails
// the request it describes.
func ActivityLog(repo repository.ActivityLogRepository, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// liveness polling is noise
		if c.Path() == "/healthz" || c.Path() == "/" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start).Milliseconds()

		status := c.Response().StatusCode()
		var errMsg *string
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			msg := err.Error()
			errMsg = &msg
		}

		row := &entity.ActivityLog{
			Endpoint:       c.Path(),
			Method:         c.Method(),
			StatusCode:     status,
			ResponseTimeMS: &elapsed,
			ErrorMessage:   errMsg,
		}
		if ip := c.IP(); ip != "" {
			row.IPAddress = &ip
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			row.UserAgent = &ua
		}
		if body := loggableBody(c); body != "" {
			row.RequestBody = &body
		}

		if insertErr := repo.Insert(c.UserContext(), row); insertErr != nil {
			logger.Error("failed to log activity", "endpoint", row.Endpoint, "error", insertErr)
		}
		return err
	}
}

// loggableBody keeps small JSON bodies only; uploads are identified by
// filename in the endpoint logs instead.
func loggableBody(c *fiber.Ctx) string {
	const maxBody = 2048
	ct := c.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		return ""
	}
	b := c.Body()
	if len(b) > maxBody {
		b = b[:maxBody]
	}
	return string(b)
}
