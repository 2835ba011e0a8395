package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/constants"
)

// ProcessingJob represents one document run for data transfer between
// layers. ContentHash is the hex sha256 of the uploaded bytes and doubles as
// the dedupe key for batch intake.
type ProcessingJob struct {
	ID               uuid.UUID           `json:"id"`
	Filename         string              `json:"filename"`
	ContentHash      string              `json:"content_hash"`
	Status           constants.JobStatus `json:"status"`
	OrderID          *uuid.UUID          `json:"order_id,omitempty"`
	ExtractionMethod *string             `json:"extraction_method,omitempty"`
	ConfidenceScore  *float64            `json:"confidence_score,omitempty"`
	TextPreview      *string             `json:"text_preview,omitempty"`
	ErrorMessage     *string             `json:"error_message,omitempty"`
	ProcessingTimeMS *int64              `json:"processing_time_ms,omitempty"`
	EnqueuedAt       time.Time           `json:"enqueued_at"`
	StartedAt        *time.Time          `json:"started_at,omitempty"`
	FinishedAt       *time.Time          `json:"finished_at,omitempty"`
}
