package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

// JobsHandler answers status lookups for queued processing jobs.
type JobsHandler struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewJobsHandler(jobs repository.JobRepository, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{jobs: jobs, logger: logger}
}

// GetByID returns a single processing job row.
func (h *JobsHandler) GetByID(c *fiber.Ctx) error {
	if h.jobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Background processing is not available")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "job id must be a UUID")
	}
	job, err := h.jobs.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(job)
}
