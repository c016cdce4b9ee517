package models

import (
	"fmt"
	"strings"
)

// FieldError is a non-fatal, field-level validation problem. It blocks save
// but never blocks editing.
type FieldError struct {
	StepID       string `json:"stepId,omitempty"`
	TriggerIndex *int   `json:"triggerIndex,omitempty"`
	Field        string `json:"field"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

func (e FieldError) Error() string {
	switch {
	case e.StepID != "":
		return fmt.Sprintf("step %s: %s: %s", e.StepID, e.Field, e.Message)
	case e.TriggerIndex != nil:
		return fmt.Sprintf("trigger %d: %s: %s", *e.TriggerIndex, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
}

// Structural error codes.
const (
	StructuralDanglingReference = "dangling_reference"
	StructuralSelfLoop          = "self_loop"
	StructuralUnknownOutcome    = "unknown_outcome"
	StructuralNonCondition      = "branches_on_non_condition"
	StructuralOrderGap          = "order_not_contiguous"
	StructuralDuplicateID       = "duplicate_step_id"
	StructuralReservedID        = "reserved_step_id"
)

// StructuralError is a blocking problem with the step graph.
type StructuralError struct {
	StepID  string  `json:"stepId"`
	Outcome Outcome `json:"outcome,omitempty"`
	Target  Target  `json:"target,omitempty"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}

func (e StructuralError) Error() string {
	return fmt.Sprintf("step %s: %s", e.StepID, e.Message)
}

// Warning codes.
const WarningUnreachable = "unreachable_step"

// Warning is advisory and never blocks save.
type Warning struct {
	StepID  string `json:"stepId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationReport aggregates every problem found in a definition.
type ValidationReport struct {
	Valid            bool              `json:"valid"`
	FieldErrors      []FieldError      `json:"fieldErrors"`
	StructuralErrors []StructuralError `json:"structuralErrors"`
	Warnings         []Warning         `json:"warnings"`
}

// ErrorCount returns the number of blocking problems.
func (r ValidationReport) ErrorCount() int {
	return len(r.FieldErrors) + len(r.StructuralErrors)
}

// FieldErrorsFor returns the field errors attached to a step.
func (r ValidationReport) FieldErrorsFor(stepID string) []FieldError {
	var out []FieldError

	for _, e := range r.FieldErrors {
		if e.StepID == stepID {
			out = append(out, e)
		}
	}

	return out
}

// Summary joins every blocking problem in a single line.
func (r ValidationReport) Summary() string {
	parts := make([]string, 0, r.ErrorCount())
	for _, e := range r.StructuralErrors {
		parts = append(parts, e.Error())
	}

	for _, e := range r.FieldErrors {
		parts = append(parts, e.Error())
	}

	return strings.Join(parts, "; ")
}
