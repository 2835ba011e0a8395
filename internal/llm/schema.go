package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildValidationJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// validation judgment, as a generic map. We validate reasoning-service output
// against it before merging corrections; responses that fail fall back to the
// degraded summary. Nothing is required: the merge tolerates missing fields the
// same way it tolerates missing judgments, so the schema only rejects type-level
// nonsense (strings where numbers belong, objects where arrays belong).
func BuildValidationJSONSchema() map[string]any {
	fieldResult := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_valid":        map[string]any{"type": "boolean"},
			"confidence":      map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"issues":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"corrected_value": map[string]any{"type": []any{"string", "null"}},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"validation_results": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"first_name":    fieldResult,
					"last_name":     fieldResult,
					"date_of_birth": fieldResult,
				},
			},
			"overall_validation": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"overall_confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
					"data_quality_score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
					"validation_summary": map[string]any{"type": "string"},
					"recommendations":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
		},
	}
}

// BuildAnalysisJSONSchema covers the text/vision analysis shape: three
// nullable string fields plus an optional self-reported score.
func BuildAnalysisJSONSchema() map[string]any {
	nullableString := map[string]any{"type": []any{"string", "null"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"first_name":       nullableString,
			"last_name":        nullableString,
			"date_of_birth":    nullableString,
			"confidence_score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
	}
}

// ValidateJSONAgainstSchema compiles schema and validates doc against it.
func ValidateJSONAgainstSchema(schema map[string]any, doc []byte) error {
	sb, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(sb)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return compiled.Validate(v)
}
