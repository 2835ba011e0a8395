package entity

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog represents one recorded API call for data transfer between
// layers. Request bodies are stored as strings and may be truncated by the
// middleware before they get here.
type ActivityLog struct {
	ID             uuid.UUID `json:"id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code"`
	IPAddress      *string   `json:"ip_address,omitempty"`
	UserAgent      *string   `json:"user_agent,omitempty"`
	RequestBody    *string   `json:"request_body,omitempty"`
	ResponseTimeMS *int64    `json:"response_time_ms,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
