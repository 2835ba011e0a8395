package llm

import (
	"fmt"
	"strings"
)

// MaxPromptTextChars bounds the document text embedded in prompts so payloads
// stay inside the provider's context limits.
const MaxPromptTextChars = 4000

const textAnalysisPrompt = `You are a medical document analysis expert. Extract patient information from this document text.

Document text:
%s

IMPORTANT: Respond with ONLY valid JSON, no additional text or explanation.

Extract the following information in this exact JSON format:
{
    "first_name": "patient's first name or null",
    "last_name": "patient's last name or null",
    "date_of_birth": "date in MM/DD/YYYY format or null",
    "confidence_score": 0.8
}

Rules:
- Only extract information you are confident about
- Use null (not "null") for missing values
- Separate patient names from ID numbers, person numbers, or other fields
- Date format must be MM/DD/YYYY
- confidence_score must be a number between 0.0 and 1.0
- Return ONLY the JSON object, no other text`

const validationPrompt = `You are a medical data validation expert. Your task is to validate and verify OCR-extracted patient information against the original document text.

Original Document Text:
%s

OCR-Extracted Information:
- First Name: %s
- Last Name: %s
- Date of Birth: %s

IMPORTANT: Respond with ONLY valid JSON, no additional text or explanation.

Validate this information and provide analysis in this exact JSON format:
{
    "validation_results": {
        "first_name": {
            "is_valid": true,
            "confidence": 0.9,
            "issues": [],
            "corrected_value": null
        },
        "last_name": {
            "is_valid": true,
            "confidence": 0.9,
            "issues": [],
            "corrected_value": null
        },
        "date_of_birth": {
            "is_valid": true,
            "confidence": 0.9,
            "issues": [],
            "corrected_value": null
        }
    },
    "overall_validation": {
        "overall_confidence": 0.9,
        "data_quality_score": 0.9,
        "validation_summary": "Brief summary of validation results",
        "recommendations": []
    }
}

Rules:
- is_valid: true or false (boolean)
- confidence: number between 0.0 and 1.0
- issues: array of strings describing problems found
- corrected_value: corrected value as string or null if no correction needed
- Use null (not "null") for null values
- Check if names are realistic human names (not numbers, codes, or artifacts)
- Verify date format and logical date ranges (birth dates should be reasonable)
- Look for OCR artifacts like mixed characters, impossible combinations
- Return ONLY the JSON object, no other text`

// VisionAnalysisPrompt asks a vision-capable model to read the page image directly.
const VisionAnalysisPrompt = `You are analyzing a medical document image. Extract patient information with high accuracy.

IMPORTANT: Respond with ONLY valid JSON, no additional text or explanation.

Please identify and extract patient information in this exact JSON format:
{
    "first_name": "patient's first name or null",
    "last_name": "patient's last name or null",
    "date_of_birth": "date in MM/DD/YYYY format or null",
    "confidence_score": 0.8
}

Rules:
- Only extract information you are highly confident about
- Use null (not "null") for missing values
- Separate patient names from ID numbers or other document fields
- Date format must be MM/DD/YYYY
- confidence_score must be a number between 0.0 and 1.0
- Return ONLY the JSON object, no other text`

// BuildTextAnalysisPrompt embeds (bounded) document text into the extraction prompt.
func BuildTextAnalysisPrompt(documentText string) string {
	return fmt.Sprintf(textAnalysisPrompt, TruncateForPrompt(documentText))
}

// BuildValidationPrompt embeds (bounded) document text plus the three candidate
// values. Empty candidates render as "None" so the model sees an explicit absence.
func BuildValidationPrompt(documentText, firstName, lastName, dateOfBirth string) string {
	return fmt.Sprintf(validationPrompt,
		TruncateForPrompt(documentText),
		orNone(firstName),
		orNone(lastName),
		orNone(dateOfBirth),
	)
}

// TruncateForPrompt caps text at MaxPromptTextChars characters.
func TruncateForPrompt(text string) string {
	r := []rune(text)
	if len(r) <= MaxPromptTextChars {
		return text
	}
	return string(r[:MaxPromptTextChars])
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
