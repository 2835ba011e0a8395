package processor

import (
	"time"

	"github.com/joseph-ayodele/patient-intake/internal/llm"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/parsefields"
)

// Provenance beyond the cascade's own method names. A validated result keeps
// its base method plus the suffix; an adopted reanalysis replaces the method
// outright since the fields no longer come from pattern extraction.
const (
	SuffixAIValidated      = "_ai_validated"
	MethodAITextEnhanced   = "ai_text_enhanced"
	MethodAIVisionEnhanced = "ai_vision_enhanced"
	MethodError            = "error"
)

const previewChars = 500

// PatientInfo is the extracted identity triple. Nil means not found.
type PatientInfo struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DateOfBirth *string `json:"date_of_birth"`
}

func patientInfoFromFields(f parsefields.Fields) *PatientInfo {
	opt := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	return &PatientInfo{
		FirstName:   opt(f.FirstName),
		LastName:    opt(f.LastName),
		DateOfBirth: opt(f.DateOfBirth),
	}
}

// CorrectionApplied is one entry in the validation audit log.
type CorrectionApplied struct {
	Field     string   `json:"field"`
	Original  string   `json:"original"`
	Corrected string   `json:"corrected"`
	Reason    []string `json:"reason"`
}

// ValidationSummary records the reasoning service's judgment of the
// extracted fields plus every correction that was merged in.
type ValidationSummary struct {
	ValidationPerformed bool                           `json:"validation_performed"`
	ValidationResults   map[string]llm.FieldValidation `json:"validation_results"`
	OverallValidation   llm.OverallValidation          `json:"overall_validation"`
	CorrectionsApplied  []CorrectionApplied            `json:"corrections_applied"`
}

// ProcessingResult is the pipeline's one output value, assembled once at the
// end of Process and never mutated after.
type ProcessingResult struct {
	Success              bool               `json:"success"`
	PatientInfo          *PatientInfo       `json:"patient_info"`
	ExtractionMethod     string             `json:"extraction_method"`
	ConfidenceScore      float64            `json:"confidence_score"`
	ExtractedTextPreview string             `json:"extracted_text_preview"`
	ProcessingTimeMS     int64              `json:"processing_time_ms"`
	Validation           *ValidationSummary `json:"validation,omitempty"`
	Timestamp            time.Time          `json:"timestamp"`
	Error                string             `json:"error,omitempty"`
}

func previewText(text string) string {
	r := []rune(text)
	if len(r) <= previewChars {
		return text
	}
	return string(r[:previewChars]) + "..."
}
