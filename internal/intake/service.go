// Package intake orchestrates document processing against persistence:
// it routes content to the pipeline, memoizes results, and records orders
// and processing jobs.
package intake

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/async"
	"github.com/joseph-ayodele/patient-intake/internal/cache"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
	processor "github.com/joseph-ayodele/patient-intake/internal/pipeline"
	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

// Service handles document intake business logic.
type Service struct {
	proc    *processor.Processor
	orders  repository.OrderRepository
	jobs    repository.JobRepository
	results *cache.Cache[*processor.ProcessingResult]
	model   string
	logger  *slog.Logger
}

// NewService creates a new intake service. results may be nil to disable
// memoization.
func NewService(
	proc *processor.Processor,
	orders repository.OrderRepository,
	jobs repository.JobRepository,
	results *cache.Cache[*processor.ProcessingResult],
	model string,
	logger *slog.Logger,
) *Service {
	return &Service{
		proc:    proc,
		orders:  orders,
		jobs:    jobs,
		results: results,
		model:   model,
		logger:  logger,
	}
}

// ProcessDocument routes content to the pipeline by extension and memoizes
// successful results keyed by content hash and processing parameters.
func (s *Service) ProcessDocument(ctx context.Context, content []byte, filename string, useAI bool) (*processor.ProcessingResult, error) {
	key := ""
	if s.results != nil {
		key = cache.Key(content, cache.Params{UseAI: useAI, Model: s.model})
		if r, ok := s.results.Get(key); ok {
			s.logger.Info("intake.cache_hit", "file", filename, "req_id", common.RequestIDFromContext(ctx))
			return r, nil
		}
	}

	var result *processor.ProcessingResult
	var err error
	switch constants.MapExtToFormat(filepath.Ext(filename)) {
	case constants.PDF:
		result, err = s.proc.Process(ctx, content, filename, useAI)
	case constants.IMAGE:
		result, err = s.proc.ProcessImage(ctx, content, filename, useAI)
	default:
		return nil, common.WrapError(common.ErrInvalidInput, "unsupported file extension")
	}
	if err != nil {
		return nil, err
	}

	// failed extractions are retryable, only pin successes
	if s.results != nil && result.Success {
		s.results.Set(key, result)
	}
	return result, nil
}

// CreateOrderFromResult stores an order carrying the extracted patient
// fields. Call only for successful results.
func (s *Service) CreateOrderFromResult(ctx context.Context, result *processor.ProcessingResult, filename, orderType string) (*entity.Order, error) {
	if result == nil || !result.Success || result.PatientInfo == nil {
		return nil, common.WrapError(common.ErrInvalidInput, "no extracted patient data to store")
	}
	if orderType == "" {
		orderType = constants.DefaultOrderType
	}

	notes := "Created from document: " + filename
	o := &entity.Order{
		OrderNumber:        NewOrderNumber(),
		PatientFirstName:   result.PatientInfo.FirstName,
		PatientLastName:    result.PatientInfo.LastName,
		PatientDateOfBirth: result.PatientInfo.DateOfBirth,
		OrderType:          orderType,
		Status:             constants.OrderStatusPending,
		Notes:              &notes,
		ExtractionMethod:   &result.ExtractionMethod,
		ConfidenceScore:    &result.ConfidenceScore,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info("intake.order_created",
		"order_number", o.OrderNumber,
		"file", filename,
		"req_id", common.RequestIDFromContext(ctx),
	)
	return o, nil
}

// HandleJob is the worker queue handler: it runs one enqueued document and
// records the outcome on its job row. Order creation failures do not fail
// the job; the extraction outcome is still recorded.
func (s *Service) HandleJob(ctx context.Context, job async.Job) error {
	if err := s.jobs.MarkRunning(ctx, job.ID, time.Now().UTC()); err != nil {
		return err
	}

	result, err := s.ProcessDocument(ctx, job.Content, job.Filename, job.UseAI)
	if err != nil {
		msg := err.Error()
		_ = s.jobs.Finish(ctx, job.ID, repository.JobOutcome{
			Status:       constants.JobStatusFailed,
			ErrorMessage: &msg,
			FinishedAt:   time.Now().UTC(),
		})
		return err
	}

	outcome := repository.JobOutcome{
		ExtractionMethod: &result.ExtractionMethod,
		ConfidenceScore:  &result.ConfidenceScore,
		ProcessingTimeMS: &result.ProcessingTimeMS,
		FinishedAt:       time.Now().UTC(),
	}
	if !result.Success {
		outcome.Status = constants.JobStatusFailed
		outcome.ErrorMessage = &result.Error
		return s.jobs.Finish(ctx, job.ID, outcome)
	}

	outcome.Status = constants.JobStatusDone
	if result.ExtractedTextPreview != "" {
		outcome.TextPreview = &result.ExtractedTextPreview
	}
	if order, err := s.CreateOrderFromResult(ctx, result, job.Filename, ""); err != nil {
		s.logger.Error("intake.order_create_failed", "job_id", job.ID, "error", err)
	} else {
		outcome.OrderID = &order.ID
	}
	return s.jobs.Finish(ctx, job.ID, outcome)
}

// EnqueueDocument records a QUEUED job row for content already read into
// memory. The returned job carries everything a worker needs.
func (s *Service) EnqueueDocument(ctx context.Context, content []byte, filename string, useAI bool) (async.Job, error) {
	sum := cache.ContentHash(content)
	row := &entity.ProcessingJob{
		Filename:    filepath.Base(filename),
		ContentHash: hex.EncodeToString(sum[:]),
	}
	if err := s.jobs.Enqueue(ctx, row); err != nil {
		return async.Job{}, err
	}
	return async.Job{
		ID:          row.ID,
		Filename:    row.Filename,
		Content:     content,
		UseAI:       useAI,
		SubmittedAt: time.Now().UTC(),
		TraceID:     common.RequestIDFromContext(ctx),
	}, nil
}

// FindPriorJob reports the most recent job for identical content, or nil.
func (s *Service) FindPriorJob(ctx context.Context, content []byte) (*entity.ProcessingJob, error) {
	sum := cache.ContentHash(content)
	prior, err := s.jobs.FindByContentHash(ctx, hex.EncodeToString(sum[:]))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return prior, nil
}

// NewOrderNumber mints a short unique order number for document-driven
// orders.
func NewOrderNumber() string {
	u := uuid.New()
	return "DOC-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}
