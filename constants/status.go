package constants

// JobStatus is the canonical status for rows in processing_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // waiting in the worker queue
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusDone    JobStatus = "DONE"    // pipeline finished with a result
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure (no text extracted)
)

// OrderStatus is the lifecycle status for rows in orders.
type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusNeedsReview OrderStatus = "needs_review"
	OrderStatusCompleted   OrderStatus = "completed"
)

// DefaultOrderType is used when the caller doesn't name one.
const DefaultOrderType = "Document Processing"
