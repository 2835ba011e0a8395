package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Pipeline failure modes. Only ErrTextExtraction is fatal for a request;
// the reasoning-side errors degrade the pipeline to its current best result.
var (
	ErrTextExtraction       = errors.New("text extraction failed")
	ErrOCRUnavailable       = errors.New("ocr engine unavailable")
	ErrReasoningUnavailable = errors.New("reasoning service unavailable")
	ErrReasoningMalformed   = errors.New("reasoning response malformed")
	ErrRateLimited          = errors.New("rate limited")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
