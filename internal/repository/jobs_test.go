package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
)

func TestJobLifecycle(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobRepository(db, testLogger())
	orders := NewOrderRepository(db, testLogger())
	ctx := context.Background()

	job := &entity.ProcessingJob{
		Filename:    "intake.pdf",
		ContentHash: strings.Repeat("ab", 32),
	}
	require.NoError(t, jobs.Enqueue(ctx, job))
	assert.NotEqual(t, uuid.Nil, job.ID, "Enqueue assigns an id")
	assert.Equal(t, constants.JobStatusQueued, job.Status)
	assert.False(t, job.EnqueuedAt.IsZero())

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, jobs.MarkRunning(ctx, job.ID, started))
	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Nil(t, got.FinishedAt)

	order := &entity.Order{
		OrderNumber: "DOC-JOB00001",
		OrderType:   constants.DefaultOrderType,
		Status:      constants.OrderStatusPending,
	}
	require.NoError(t, orders.Create(ctx, order))

	require.NoError(t, jobs.Finish(ctx, job.ID, JobOutcome{
		Status:           constants.JobStatusDone,
		OrderID:          &order.ID,
		ExtractionMethod: ptr("pdf_layout"),
		ConfidenceScore:  ptr(0.8),
		TextPreview:      ptr("Patient Name: John Smith"),
		ProcessingTimeMS: ptr(int64(42)),
		FinishedAt:       started.Add(2 * time.Second),
	}))

	got, err = jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, got.Status)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, order.ID, *got.OrderID)
	require.NotNil(t, got.ExtractionMethod)
	assert.Equal(t, "pdf_layout", *got.ExtractionMethod)
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.8, *got.ConfidenceScore, 1e-9)
	require.NotNil(t, got.TextPreview)
	assert.Equal(t, "Patient Name: John Smith", *got.TextPreview)
	require.NotNil(t, got.ProcessingTimeMS)
	assert.Equal(t, int64(42), *got.ProcessingTimeMS)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(started.Add(2*time.Second)))
	assert.Nil(t, got.ErrorMessage)
}

func TestJobFinishFailed(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobRepository(db, testLogger())
	ctx := context.Background()

	job := &entity.ProcessingJob{Filename: "bad.pdf", ContentHash: strings.Repeat("cd", 32)}
	require.NoError(t, jobs.Enqueue(ctx, job))

	require.NoError(t, jobs.Finish(ctx, job.ID, JobOutcome{
		Status:       constants.JobStatusFailed,
		ErrorMessage: ptr("could not extract text from PDF"),
		FinishedAt:   time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
	}))

	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "could not extract text from PDF", *got.ErrorMessage)
	assert.Nil(t, got.OrderID)
}

func TestJobFindByContentHash(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobRepository(db, testLogger())
	ctx := context.Background()

	hash := strings.Repeat("ef", 32)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	older := &entity.ProcessingJob{Filename: "first.pdf", ContentHash: hash, EnqueuedAt: base}
	require.NoError(t, jobs.Enqueue(ctx, older))
	newer := &entity.ProcessingJob{Filename: "second.pdf", ContentHash: hash, EnqueuedAt: base.Add(time.Hour)}
	require.NoError(t, jobs.Enqueue(ctx, newer))

	got, err := jobs.FindByContentHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID, "most recent job wins")

	_, err = jobs.FindByContentHash(ctx, strings.Repeat("00", 32))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestActivityLogInsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityLogRepository(db, testLogger())
	ctx := context.Background()

	row := &entity.ActivityLog{
		Endpoint:       "/api/v1/documents/upload",
		Method:         "POST",
		StatusCode:     200,
		IPAddress:      ptr("127.0.0.1"),
		ResponseTimeMS: ptr(int64(12)),
	}
	require.NoError(t, repo.Insert(ctx, row))
	assert.NotEqual(t, uuid.Nil, row.ID)

	var n int
	require.NoError(t, db.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&n))
	assert.Equal(t, 1, n)
}
