// Package services coordinates the workflow builder with the automation API and step runtime.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/registry"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/dukex/automations/pkg/triggers"
	"github.com/dukex/automations/pkg/workflow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrValidationFailed = errors.New("automation is not valid")
	ErrNotPersisted     = errors.New("automation has not been saved yet")
	ErrInvalidSample    = errors.New("sample contact must be a JSON object")

	// Session conflicts (409 Conflict).
	ErrSaveInProgress = errors.New("a save is already in progress")
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

// ErrorCode reports Code, recorded on tracing spans.
func (e *ServiceError) ErrorCode() string {
	return e.Code
}

// ValidationFailedError carries the report that blocked an operation.
type ValidationFailedError struct {
	Op     string
	Report models.ValidationReport
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrValidationFailed, e.Report.Summary())
}

func (e *ValidationFailedError) Unwrap() error {
	return ErrValidationFailed
}

func (e *ValidationFailedError) ErrorCode() string {
	return "validation_failed"
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrNotPersisted) ||
		errors.Is(err, ErrInvalidSample) ||
		errors.Is(err, registry.ErrUnknownKind) ||
		errors.Is(err, registry.ErrUnknownField) ||
		errors.Is(err, registry.ErrInvalidFieldValue) ||
		errors.Is(err, triggers.ErrUnknownKind) ||
		errors.Is(err, triggers.ErrInvalidSchedule) ||
		errors.Is(err, workflow.ErrInvalidBranch) ||
		errors.Is(err, workflow.ErrNotAPITrigger) ||
		workflow.IsInvariantViolation(err)
}

// IsNotFound checks if an error should return HTTP 404.
func IsNotFound(err error) bool {
	return workflow.IsNotFound(err) ||
		persistence.IsAutomationNotFound(err) ||
		persistence.IsTemplateNotFound(err)
}

// IsConflictError checks if an error should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSaveInProgress) ||
		errors.Is(err, persistence.ErrAutomationAlreadyPersisted)
}

// IsUnavailable checks if an upstream dependency failed and the call may be retried.
func IsUnavailable(err error) bool {
	return persistence.IsUnavailable(err) || errors.Is(err, runtime.ErrRuntimeUnavailable)
}

// ValidationReport extracts the report from a validation failure.
func ValidationReport(err error) (models.ValidationReport, bool) {
	var vErr *ValidationFailedError
	if errors.As(err, &vErr) {
		return vErr.Report, true
	}

	return models.ValidationReport{}, false
}

func newServiceError(op, code string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Err: err}
}
