// Package server exposes the document intake pipeline over HTTP.
package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/async"
	"github.com/joseph-ayodele/patient-intake/internal/export"
	"github.com/joseph-ayodele/patient-intake/internal/intake"
	processor "github.com/joseph-ayodele/patient-intake/internal/pipeline"
	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

// Deps carries everything the HTTP layer calls into. Queue and Jobs are
// optional; without them the async upload path answers 503.
type Deps struct {
	Intake    *intake.Service
	Processor *processor.Processor
	Orders    repository.OrderRepository
	Jobs      repository.JobRepository
	Activity  repository.ActivityLogRepository
	Exporter  *export.Service
	Queue     async.Queue
	BodyLimit int
	Logger    *slog.Logger
}

// New assembles the fiber application: middleware, per-route request
// budgets and routes.
func New(deps Deps) *fiber.App {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	bodyLimit := deps.BodyLimit
	if bodyLimit <= 0 {
		// oversize uploads get the 400 from the handler, not a 413
		bodyLimit = 2 * constants.MaxUploadBytes
	}
	app := fiber.New(fiber.Config{
		AppName:      "Patient Intake API",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestid.New())
	app.Use(RequestContext())
	if deps.Activity != nil {
		app.Use(ActivityLog(deps.Activity, log))
	}

	docs := NewDocumentsHandler(deps.Intake, deps.Processor, deps.Queue, log)
	orders := NewOrdersHandler(deps.Orders, deps.Exporter, log)
	jobs := NewJobsHandler(deps.Jobs, log)

	heavy := limiter.New(limiter.Config{Max: 5, Expiration: time.Minute})
	moderate := limiter.New(limiter.Config{Max: 10, Expiration: time.Minute})
	light := limiter.New(limiter.Config{Max: 30, Expiration: time.Minute})

	app.Get("/", apiInfo)
	app.Get("/healthz", healthz)

	v1 := app.Group("/api/v1")

	d := v1.Group("/documents")
	d.Post("/upload", heavy, docs.Upload)
	d.Post("/process", heavy, docs.Process)
	d.Post("/validate", moderate, docs.Validate)
	d.Get("/supported-formats", light, docs.SupportedFormats)

	o := v1.Group("/orders")
	o.Get("/export", light, orders.Export) // must register before :id
	o.Get("/", light, orders.List)
	o.Get("/:id", light, orders.GetByID)
	o.Patch("/:id/status", moderate, orders.UpdateStatus)

	v1.Get("/jobs/:id", light, jobs.GetByID)

	return app
}

func apiInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Patient Intake Document Processing API",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC(),
	})
}

func healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
