package models

import "errors"

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ValidationError indicates a missing or malformed request field (maps to 400)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Field + " is required"
}

// NewValidationError builds a ValidationError for a required field
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// BusinessRuleError indicates a request that is well-formed but violates a
// workflow rule, such as reassigning a ticket twice (maps to 422)
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// NewBusinessRuleError builds a BusinessRuleError with a stable rule tag
func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
