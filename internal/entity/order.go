package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/constants"
)

// Order represents a patient order for data transfer between layers.
// Patient fields stay strings; a date of birth is stored exactly as the
// pipeline produced it.
type Order struct {
	ID                 uuid.UUID             `json:"id"`
	OrderNumber        string                `json:"order_number"`
	PatientFirstName   *string               `json:"patient_first_name,omitempty"`
	PatientLastName    *string               `json:"patient_last_name,omitempty"`
	PatientDateOfBirth *string               `json:"patient_date_of_birth,omitempty"`
	OrderType          string                `json:"order_type"`
	Status             constants.OrderStatus `json:"status"`
	TotalAmount        *float64              `json:"total_amount,omitempty"`
	Notes              *string               `json:"notes,omitempty"`
	ExtractionMethod   *string               `json:"extraction_method,omitempty"`
	ConfidenceScore    *float64              `json:"confidence_score,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          *time.Time            `json:"updated_at,omitempty"`
}
