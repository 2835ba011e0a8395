package server

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/async"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
	"github.com/joseph-ayodele/patient-intake/internal/intake"
	"github.com/joseph-ayodele/patient-intake/internal/ocr"
	processor "github.com/joseph-ayodele/patient-intake/internal/pipeline"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/parsefields"
)

// DocumentsHandler handles document processing HTTP requests.
type DocumentsHandler struct {
	svc    *intake.Service
	proc   *processor.Processor
	queue  async.Queue
	logger *slog.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(svc *intake.Service, proc *processor.Processor, queue async.Queue, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{svc: svc, proc: proc, queue: queue, logger: logger}
}

// UploadResponse is the reply for document upload requests.
type UploadResponse struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message"`
	Filename    string                 `json:"filename"`
	FileSize    int                    `json:"file_size"`
	PatientInfo *processor.PatientInfo `json:"patient_info"`
	Order       *entity.Order          `json:"order,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// ProcessResponse is the full pipeline result plus a human-readable message.
type ProcessResponse struct {
	Message string `json:"message"`
	*processor.ProcessingResult
}

// Upload processes a PDF document and, unless disabled, stores an order
// with the extracted patient fields.
func (h *DocumentsHandler) Upload(c *fiber.Ctx) error {
	content, filename, pages, err := readPDFUpload(c)
	if err != nil {
		return err
	}
	useAI := formBool(c, "use_ai", true)
	createOrder := formBool(c, "create_order", true)
	orderType := c.FormValue("order_type")

	h.logger.Info("upload.received", "file", filename, "bytes", len(content), "pages", pages, "use_ai", useAI)

	if formBool(c, "async", false) {
		return h.uploadAsync(c, content, filename, useAI)
	}

	result, perr := h.svc.ProcessDocument(c.UserContext(), content, filename, useAI)
	if perr != nil {
		return fail(c, h.logger, perr)
	}

	var order *entity.Order
	if createOrder && result.Success {
		if o, oerr := h.svc.CreateOrderFromResult(c.UserContext(), result, filename, orderType); oerr != nil {
			// extraction still succeeded, report it without the order
			h.logger.Error("failed to create order from document", "file", filename, "error", oerr)
		} else {
			order = o
		}
	}

	message := "Document processed successfully"
	if !result.Success {
		message = "Failed to process document: " + result.Error
	}
	return c.JSON(UploadResponse{
		Success:     result.Success,
		Message:     message,
		Filename:    filename,
		FileSize:    len(content),
		PatientInfo: result.PatientInfo,
		Order:       order,
		Timestamp:   result.Timestamp,
	})
}

// uploadAsync records a processing job and hands the document to the worker
// queue. Callers poll /api/v1/jobs/:id for the outcome.
func (h *DocumentsHandler) uploadAsync(c *fiber.Ctx, content []byte, filename string, useAI bool) error {
	if h.queue == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Background processing is not available")
	}
	job, err := h.svc.EnqueueDocument(c.UserContext(), content, filename, useAI)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if err := h.queue.Enqueue(c.UserContext(), job); err != nil {
		return fail(c, h.logger, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":   true,
		"message":   "Document queued for processing",
		"filename":  filename,
		"file_size": len(content),
		"job_id":    job.ID,
		"timestamp": time.Now().UTC(),
	})
}

// Process runs extraction and validation without touching order storage.
func (h *DocumentsHandler) Process(c *fiber.Ctx) error {
	content, filename, _, err := readPDFUpload(c)
	if err != nil {
		return err
	}
	useAI := formBool(c, "use_ai_validation", true)

	result, perr := h.svc.ProcessDocument(c.UserContext(), content, filename, useAI)
	if perr != nil {
		return fail(c, h.logger, perr)
	}

	message := "Document processed successfully"
	if !result.Success {
		message = "Failed to process document: " + result.Error
	}
	return c.JSON(ProcessResponse{Message: message, ProcessingResult: result})
}

// Validate checks caller-supplied patient fields against the document text.
func (h *DocumentsHandler) Validate(c *fiber.Ctx) error {
	content, filename, _, err := readPDFUpload(c)
	if err != nil {
		return err
	}

	fields := parsefields.Fields{
		FirstName:   c.FormValue("first_name"),
		LastName:    c.FormValue("last_name"),
		DateOfBirth: c.FormValue("date_of_birth"),
	}

	summary, verr := h.proc.ValidateFields(c.UserContext(), content, fields)
	if verr != nil {
		if errors.Is(verr, common.ErrReasoningUnavailable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "AI validation service is not available")
		}
		return fail(c, h.logger, verr)
	}

	valOrNil := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Validation completed successfully",
		"filename": filename,
		"original_data": fiber.Map{
			"first_name":    valOrNil(fields.FirstName),
			"last_name":     valOrNil(fields.LastName),
			"date_of_birth": valOrNil(fields.DateOfBirth),
		},
		"validation_result": summary,
		"timestamp":         time.Now().UTC(),
	})
}

// SupportedFormats reports what the intake accepts over HTTP.
func (h *DocumentsHandler) SupportedFormats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"supported_formats": []fiber.Map{
			{
				"format":      "PDF",
				"extensions":  []string{".pdf"},
				"max_size_mb": constants.MaxUploadBytes / (1024 * 1024),
				"description": "Portable Document Format files",
			},
		},
		"extraction_capabilities": []string{
			"Patient first name",
			"Patient last name",
			"Date of birth",
			"Full text extraction",
			"AI-powered validation and correction",
		},
		"validation_features": []string{
			"OCR accuracy verification",
			"Data consistency checking",
			"Automatic error correction",
			"Confidence scoring",
			"Quality assessment",
		},
	})
}

// readPDFUpload pulls the multipart file out of the request and applies the
// intake gates: PDF extension, size cap, non-empty, structurally sound.
func readPDFUpload(c *fiber.Ctx) (content []byte, filename string, pages int, err error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", 0, fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}
	filename = fileHeader.Filename

	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, "", 0, fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", 0, fiber.NewError(fiber.StatusBadRequest, "Unable to read uploaded file")
	}
	defer f.Close()
	content, err = io.ReadAll(f)
	if err != nil {
		return nil, "", 0, fiber.NewError(fiber.StatusBadRequest, "Unable to read uploaded file")
	}

	if len(content) > constants.MaxUploadBytes {
		return nil, "", 0, fiber.NewError(fiber.StatusBadRequest, "File size must be less than 10MB")
	}
	if len(content) == 0 {
		return nil, "", 0, fiber.NewError(fiber.StatusBadRequest, "File is empty")
	}

	pages, err = ocr.InspectPDF(content)
	if err != nil {
		return nil, "", 0, fiber.NewError(fiber.StatusBadRequest, "Invalid or corrupted PDF file")
	}
	return content, filename, pages, nil
}

func formBool(c *fiber.Ctx, key string, def bool) bool {
	v := c.FormValue(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
