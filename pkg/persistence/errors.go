// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTemplateNotFound indicates a template was not found by the given identity.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateAlreadyExists indicates a template with the same
	// (account, id, version) identity already exists.
	ErrTemplateAlreadyExists = errors.New("template already exists")

	// ErrInvalidTemplateStatus indicates an unknown template status was provided.
	ErrInvalidTemplateStatus = errors.New("invalid template status")
)

// TemplateError wraps template-related storage errors with operation context.
type TemplateError struct {
	Op         string // Operation being performed (e.g. "Get", "Update", "Delete")
	AccountID  string
	TemplateID string
	Version    string
	Err        error
}

func (e *TemplateError) Error() string {
	target := e.TemplateID
	if e.Version != "" {
		target = fmt.Sprintf("%s@%s", e.TemplateID, e.Version)
	}

	return fmt.Sprintf("%s operation failed for template %s in account %s: %v", e.Op, target, e.AccountID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

func (e *TemplateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTemplateError creates a new template error with context.
func NewTemplateError(op, accountID, templateID, version string, err error) *TemplateError {
	return &TemplateError{
		Op:         op,
		AccountID:  accountID,
		TemplateID: templateID,
		Version:    version,
		Err:        err,
	}
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsTemplateAlreadyExists checks if an error indicates an identity collision.
func IsTemplateAlreadyExists(err error) bool {
	return errors.Is(err, ErrTemplateAlreadyExists)
}
