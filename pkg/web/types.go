// Package web provides HTTP request and response types for the automation builder API.
package web

import (
	"encoding/json"
	"time"

	"github.com/dukex/automations/pkg/models"
)

// NewDefinitionRequest starts an empty definition.
type NewDefinitionRequest struct {
	Name        string `json:"name"        validate:"required,min=1"`
	Description string `json:"description"`
}

// DefinitionRequest carries the definition an operation applies to. The
// builder is stateless; clients send the current definition with every call.
type DefinitionRequest struct {
	Definition models.WorkflowDefinition `json:"definition"`
}

type AddStepRequest struct {
	DefinitionRequest

	Kind models.StepKind `json:"kind" validate:"required,oneof=email delay condition action"`
}

// StepRequest addresses one step; used by remove, duplicate and resolve.
type StepRequest struct {
	DefinitionRequest

	StepID string `json:"stepId" validate:"required"`
}

type ReorderStepRequest struct {
	DefinitionRequest

	StepID  string `json:"stepId"  validate:"required"`
	ToIndex int    `json:"toIndex"`
}

type UpdateStepFieldRequest struct {
	DefinitionRequest

	StepID string `json:"stepId" validate:"required"`
	Field  string `json:"field"  validate:"required"`
	Value  any    `json:"value"`
}

// SetBranchRequest rewires one outcome. An empty target clears it.
type SetBranchRequest struct {
	DefinitionRequest

	StepID  string         `json:"stepId"  validate:"required"`
	Outcome models.Outcome `json:"outcome" validate:"required,oneof=yes no"`
	Target  models.Target  `json:"target"`
}

type AddTriggerRequest struct {
	DefinitionRequest

	Kind models.TriggerKind `json:"kind" validate:"required,oneof=manual scheduled event form_submission api_trigger"`
}

// TriggerRequest addresses one trigger; used by remove and regenerate-key.
type TriggerRequest struct {
	DefinitionRequest

	Index int `json:"index" validate:"gte=0"`
}

type UpdateTriggerRequest struct {
	DefinitionRequest

	Index int                 `json:"index" validate:"gte=0"`
	Patch models.TriggerPatch `json:"patch"`
}

// SchedulePreviewRequest asks for the cron form and next run of a schedule.
// From defaults to now.
type SchedulePreviewRequest struct {
	Config models.TriggerConfig `json:"config"`
	From   *time.Time           `json:"from,omitempty"`
}

type SchedulePreviewResponse struct {
	Cron    string    `json:"cron"`
	NextRun time.Time `json:"nextRun"`
}

type TestStepRequest struct {
	DefinitionRequest

	SampleContact json.RawMessage `json:"sampleContact"`
}

type FromTemplateRequest struct {
	Name       string `json:"name"`
	TemplateID string `json:"templateId" validate:"required"`
}

// DefinitionResponse wraps the result of a builder operation.
type DefinitionResponse struct {
	Definition models.WorkflowDefinition `json:"definition"`
}

type ResolveResponse struct {
	StepID     string            `json:"stepId"`
	Resolution models.Resolution `json:"resolution"`
}
