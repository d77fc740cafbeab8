// Package services provides the business logic for template authoring.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flowsmith/flowsmith/pkg/validation"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrDefinitionInvalid = errors.New("definition failed structural validation")
	ErrEmptyAccountID    = errors.New("account ID cannot be empty")

	// Business logic conflicts (409 Conflict).
	ErrVersionConflict       = errors.New("template version conflict")
	ErrTemplateAlreadyExists = errors.New("template version already exists")

	// Not found (404).
	ErrTemplateNotFound = errors.New("template not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// DefinitionValidationError carries the enumerated validation findings so
// callers can surface the full list, never a bare exception.
type DefinitionValidationError struct {
	Op     string
	Result validation.Result
}

func (e *DefinitionValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, strings.Join(e.Result.Errors, "; "))
}

func (e *DefinitionValidationError) Unwrap() error {
	return ErrDefinitionInvalid
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrDefinitionInvalid) ||
		errors.Is(err, ErrEmptyAccountID)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrTemplateAlreadyExists)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
