package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Concrete errors wrap one of these so callers can map them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

// Lifecycle errors
var (
	ErrCaseNotFound        = fmt.Errorf("case %w", ErrNotFound)
	ErrAssigneeNotFound    = fmt.Errorf("assignee %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrAttachmentNotFound  = fmt.Errorf("attachment %w", ErrNotFound)
	ErrNoComplainant       = fmt.Errorf("%w: case has no complainant", ErrInvalidState)
	ErrNoComplainantEmail  = fmt.Errorf("%w: complainant has no email address", ErrInvalidState)
	ErrNoEmailConsent      = fmt.Errorf("%w: complainant did not authorize email", ErrInvalidState)
	ErrTransitionForbidden = fmt.Errorf("%w: status transition not allowed", ErrInvalidState)
	ErrCodeExhausted       = fmt.Errorf("%w: could not generate a unique case code", ErrConflict)
)

// ValidationError lists every field problem found in a request
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Fields, "; "))
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// newValidationError returns nil when there are no problems
func newValidationError(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
