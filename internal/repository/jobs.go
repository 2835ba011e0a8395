package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
)

// JobOutcome carries everything a finished run writes back to its row.
type JobOutcome struct {
	Status           constants.JobStatus
	OrderID          *uuid.UUID
	ExtractionMethod *string
	ConfidenceScore  *float64
	TextPreview      *string
	ErrorMessage     *string
	ProcessingTimeMS *int64
	FinishedAt       time.Time
}

type JobRepository interface {
	Enqueue(ctx context.Context, job *entity.ProcessingJob) error
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	Finish(ctx context.Context, id uuid.UUID, outcome JobOutcome) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingJob, error)
	FindByContentHash(ctx context.Context, hash string) (*entity.ProcessingJob, error)
}

type jobRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewJobRepository(db *DB, logger *slog.Logger) JobRepository {
	return &jobRepo{db: db, logger: logger}
}

const jobColumns = `id, filename, content_hash, status, order_id,
	extraction_method, confidence_score, text_preview, error_message,
	processing_time_ms, enqueued_at, started_at, finished_at`

func (r *jobRepo) Enqueue(ctx context.Context, job *entity.ProcessingJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = constants.JobStatusQueued
	}

	query := r.db.rebind(`INSERT INTO processing_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, query,
		job.ID, job.Filename, job.ContentHash, string(job.Status), job.OrderID,
		job.ExtractionMethod, job.ConfidenceScore, job.TextPreview, job.ErrorMessage,
		job.ProcessingTimeMS, job.EnqueuedAt, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		r.logger.Error("failed to enqueue job", "filename", job.Filename, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}

func (r *jobRepo) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := r.db.rebind(`UPDATE processing_jobs SET status = ?, started_at = ? WHERE id = ?`)
	_, err := r.db.SQL.ExecContext(ctx, query, string(constants.JobStatusRunning), startedAt, id)
	if err != nil {
		r.logger.Error("failed to mark job running", "id", id, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}

func (r *jobRepo) Finish(ctx context.Context, id uuid.UUID, outcome JobOutcome) error {
	query := r.db.rebind(`UPDATE processing_jobs SET
		status = ?, order_id = ?, extraction_method = ?, confidence_score = ?,
		text_preview = ?, error_message = ?, processing_time_ms = ?, finished_at = ?
		WHERE id = ?`)
	_, err := r.db.SQL.ExecContext(ctx, query,
		string(outcome.Status), outcome.OrderID, outcome.ExtractionMethod,
		outcome.ConfidenceScore, outcome.TextPreview, outcome.ErrorMessage,
		outcome.ProcessingTimeMS, outcome.FinishedAt, id,
	)
	if err != nil {
		r.logger.Error("failed to finish job", "id", id, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingJob, error) {
	query := r.db.rebind(`SELECT ` + jobColumns + ` FROM processing_jobs WHERE id = ?`)
	return r.scanOne(r.db.SQL.QueryRowContext(ctx, query, id))
}

// FindByContentHash returns the most recent job for identical content, used
// by batch intake to skip files it has already processed.
func (r *jobRepo) FindByContentHash(ctx context.Context, hash string) (*entity.ProcessingJob, error) {
	query := r.db.rebind(`SELECT ` + jobColumns + ` FROM processing_jobs
		WHERE content_hash = ? ORDER BY enqueued_at DESC LIMIT 1`)
	return r.scanOne(r.db.SQL.QueryRowContext(ctx, query, hash))
}

func (r *jobRepo) scanOne(row rowScanner) (*entity.ProcessingJob, error) {
	var j entity.ProcessingJob
	var status string
	err := row.Scan(
		&j.ID, &j.Filename, &j.ContentHash, &status, &j.OrderID,
		&j.ExtractionMethod, &j.ConfidenceScore, &j.TextPreview, &j.ErrorMessage,
		&j.ProcessingTimeMS, &j.EnqueuedAt, &j.StartedAt, &j.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.WrapError(common.ErrNotFound, "job not found")
	}
	if err != nil {
		r.logger.Error("failed to scan job", "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	j.Status = constants.JobStatus(status)
	return &j, nil
}
