package workflow

import (
	"github.com/dukex/automations/pkg/branching"
	"github.com/dukex/automations/pkg/models"
)

// Workflow-level rule codes.
const (
	CodeMinSteps    = "min_steps"
	CodeMinTriggers = "min_triggers"
)

// Validate reports every problem that blocks saving def, plus advisory
// warnings. It never modifies def.
func (b *Builder) Validate(def models.WorkflowDefinition) models.ValidationReport {
	report := models.ValidationReport{
		FieldErrors:      []models.FieldError{},
		StructuralErrors: []models.StructuralError{},
		Warnings:         []models.Warning{},
	}

	if len(def.Steps) == 0 {
		report.FieldErrors = append(report.FieldErrors, models.FieldError{
			Field:   "steps",
			Code:    CodeMinSteps,
			Message: "a workflow needs at least one step",
		})
	}

	if len(def.Triggers) == 0 {
		report.FieldErrors = append(report.FieldErrors, models.FieldError{
			Field:   "triggers",
			Code:    CodeMinTriggers,
			Message: "a workflow needs at least one trigger",
		})
	}

	for _, step := range def.Steps {
		report.FieldErrors = append(report.FieldErrors, b.registry.ValidatePayload(step)...)
	}

	for i, t := range def.Triggers {
		for _, fe := range b.triggers.Validate(t) {
			fe.TriggerIndex = &i
			report.FieldErrors = append(report.FieldErrors, fe)
		}
	}

	report.StructuralErrors = append(report.StructuralErrors, structuralErrors(def.Steps)...)

	if len(report.StructuralErrors) == 0 {
		report.Warnings = append(report.Warnings, branching.Unreachable(def.Steps)...)
	}

	report.Valid = report.ErrorCount() == 0

	return report
}

// ValidateStep reports the field errors of a single step in isolation.
func (b *Builder) ValidateStep(step models.Step) []models.FieldError {
	return b.registry.ValidatePayload(step)
}
