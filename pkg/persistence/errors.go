package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAutomationNotFound indicates an automation was not found by the given identifier.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrTemplateNotFound indicates a template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrAutomationAlreadyPersisted indicates Create was called with a definition that has an id.
	ErrAutomationAlreadyPersisted = errors.New("automation already persisted")

	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("persistence unavailable")
)

// AutomationError wraps automation-related errors with additional context.
type AutomationError struct {
	Op           string // Operation being performed (e.g., "Create", "Update")
	AutomationID string // Automation ID if applicable
	Err          error  // Underlying error
	Message      string // Additional context message
}

func (e *AutomationError) Error() string {
	target := e.AutomationID
	if target == "" {
		target = "(new)"
	}

	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for automation %s: %s (%v)", e.Op, target, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for automation %s: %v", e.Op, target, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for automation errors.
func (e *AutomationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAutomationError creates a new automation error with context.
func NewAutomationError(op, automationID string, err error) *AutomationError {
	return &AutomationError{
		Op:           op,
		AutomationID: automationID,
		Err:          err,
	}
}

// IsAutomationNotFound checks if an error indicates an automation was not found.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsUnavailable checks if an error indicates the store could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
