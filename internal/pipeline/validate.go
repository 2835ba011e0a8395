package processor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/joseph-ayodele/patient-intake/internal/llm"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/parsefields"
)

// Fixed wording of the synthesized judgment used when the reasoning service
// answers with something that is not parseable JSON. Downstream consumers
// and the escalation gate key off a 0.5 quality score, so these values are
// part of the contract.
const (
	degradedIssue          = "Unable to validate due to parsing error"
	degradedSummaryText    = "Validation failed due to response parsing error"
	degradedRecommendation = "Manual review recommended due to validation error"
)

// Validator asks the reasoning service to judge extracted candidates against
// the document text and merges any corrections it suggests.
type Validator struct {
	reasoner llm.Reasoner
	log      *slog.Logger
}

func NewValidator(r llm.Reasoner, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{reasoner: r, log: log}
}

// Validate returns the (possibly corrected) fields and the judgment. A nil
// summary means validation was skipped entirely: no reasoner, nothing to
// validate, or the request itself failed. A malformed response is NOT a
// skip; it yields the degraded summary so processing can continue.
func (v *Validator) Validate(ctx context.Context, text string, candidate parsefields.Fields) (parsefields.Fields, *ValidationSummary) {
	if v == nil || v.reasoner == nil || candidate.Empty() {
		return candidate, nil
	}

	prompt := llm.BuildValidationPrompt(text,
		candidate.FirstName, candidate.LastName, candidate.DateOfBirth)

	raw, err := v.reasoner.Complete(ctx, prompt)
	if err != nil {
		v.log.Warn("validate.request_failed", "error", err)
		return candidate, nil
	}

	parsed := v.parseResponse(raw)

	corrected := candidate
	summary := &ValidationSummary{
		ValidationPerformed: true,
		ValidationResults:   parsed.ValidationResults,
		OverallValidation:   parsed.OverallValidation,
		CorrectionsApplied:  []CorrectionApplied{},
	}

	for _, field := range parsefields.FieldNames() {
		fv, ok := parsed.ValidationResults[field]
		if !ok || fv.CorrectedValue == nil {
			continue
		}
		value := *fv.CorrectedValue
		if value == "" || value == candidate.Value(field) {
			continue
		}
		corrected.SetValue(field, value)
		summary.CorrectionsApplied = append(summary.CorrectionsApplied, CorrectionApplied{
			Field:     field,
			Original:  candidate.Value(field),
			Corrected: value,
			Reason:    fv.Issues,
		})
	}

	return corrected, summary
}

// parseResponse pulls the first balanced JSON object out of the reply and
// checks it against the validation schema. Any failure along the way maps to
// the fixed degraded judgment.
func (v *Validator) parseResponse(raw string) llm.ValidationResponse {
	obj, err := llm.FirstJSONObject(raw)
	if err == nil {
		err = llm.ValidateJSONAgainstSchema(llm.BuildValidationJSONSchema(), obj)
	}
	if err == nil {
		var resp llm.ValidationResponse
		jerr := json.Unmarshal(obj, &resp)
		if jerr == nil {
			return resp
		}
		err = jerr
	}

	v.log.Warn("validate.response_malformed", "error", err, "preview", previewText(raw))
	return degradedValidationResponse()
}

func degradedValidationResponse() llm.ValidationResponse {
	field := func() llm.FieldValidation {
		return llm.FieldValidation{
			IsValid:    true,
			Confidence: 0.5,
			Issues:     []string{degradedIssue},
		}
	}
	return llm.ValidationResponse{
		ValidationResults: map[string]llm.FieldValidation{
			parsefields.FieldFirstName:   field(),
			parsefields.FieldLastName:    field(),
			parsefields.FieldDateOfBirth: field(),
		},
		OverallValidation: llm.OverallValidation{
			OverallConfidence: 0.5,
			DataQualityScore:  0.5,
			ValidationSummary: degradedSummaryText,
			Recommendations:   []string{degradedRecommendation},
		},
	}
}
