package llm

import "context"

// Reasoner is the reasoning-service capability the pipeline consumes.
// Complete sends a text-only prompt; CompleteWithImage attaches one image as a
// data URL. Both return the raw completion text; callers parse it leniently and
// never assume well-formed output.
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImage(ctx context.Context, prompt, imageDataURL string) (string, error)
}

// AnalysisResult is the three-field shape both text and vision analysis return.
// Values are nil when the model reported null or omitted the field. The model's
// self-reported confidence_score is ignored; the rubric is the only score source.
type AnalysisResult struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DateOfBirth *string `json:"date_of_birth"`
}

// FieldValidation is the per-field judgment inside a validation response.
type FieldValidation struct {
	IsValid        bool     `json:"is_valid"`
	Confidence     float64  `json:"confidence"`
	Issues         []string `json:"issues"`
	CorrectedValue *string  `json:"corrected_value"`
}

// OverallValidation aggregates the document-level judgment.
type OverallValidation struct {
	OverallConfidence float64  `json:"overall_confidence"`
	DataQualityScore  float64  `json:"data_quality_score"`
	ValidationSummary string   `json:"validation_summary"`
	Recommendations   []string `json:"recommendations"`
}

// ValidationResponse is the full structured judgment returned by the
// reasoning service for a validation prompt.
type ValidationResponse struct {
	ValidationResults map[string]FieldValidation `json:"validation_results"`
	OverallValidation OverallValidation          `json:"overall_validation"`
}
