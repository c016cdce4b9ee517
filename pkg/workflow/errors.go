package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/automations/pkg/models"
)

var (
	// ErrInvariantViolation is returned when a mutation would leave the
	// definition structurally corrupt. The prior definition is returned with it.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrStepNotFound is returned for an unknown step id.
	ErrStepNotFound = errors.New("step not found")

	// ErrTriggerNotFound is returned for a trigger index out of range.
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrInvalidBranch is returned when a branch cannot be wired as requested.
	ErrInvalidBranch = errors.New("invalid branch")

	// ErrNotAPITrigger is returned when regenerating a key on a trigger without one.
	ErrNotAPITrigger = errors.New("trigger is not an api trigger")
)

// InvariantError carries the operation that was aborted and why.
type InvariantError struct {
	Op         string
	Reason     string
	Violations []models.StructuralError
}

func (e *InvariantError) Error() string {
	reason := e.Reason
	if len(e.Violations) > 0 {
		parts := make([]string, 0, len(e.Violations))
		for _, v := range e.Violations {
			parts = append(parts, v.Error())
		}

		reason = strings.Join(parts, "; ")
	}

	return fmt.Sprintf("%s: %s: %s", e.Op, ErrInvariantViolation, reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// IsInvariantViolation checks if the error aborted a mutation.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsNotFound checks if the error names a missing step or trigger.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound) || errors.Is(err, ErrTriggerNotFound)
}
