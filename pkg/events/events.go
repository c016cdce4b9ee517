// Package events defines the notifications published after automations are saved or tested.
package events

import (
	"time"

	"github.com/dukex/automations/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every automation event.
const Topic = "automations.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	AutomationSavedEvent      EventType = "automation.saved"
	AutomationStepsSavedEvent EventType = "automation.steps.saved"
	StepTestedEvent           EventType = "automation.step.tested"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	AutomationID string         `json:"automation_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// AutomationSaved is published after a full definition was created or updated.
type AutomationSaved struct {
	BaseEvent

	Created      bool               `json:"created"`
	Name         string             `json:"name"`
	StepCount    int                `json:"step_count"`
	TriggerKinds []string           `json:"trigger_kinds"`
	IDMappings   []models.IDMapping `json:"id_mappings,omitempty"`
}

func (a AutomationSaved) GetType() EventType {
	return AutomationSavedEvent
}

type AutomationStepsSaved struct {
	BaseEvent

	StepCount int `json:"step_count"`
}

func (a AutomationStepsSaved) GetType() EventType {
	return AutomationStepsSavedEvent
}

// StepTested is published after the runtime answered a step test.
type StepTested struct {
	BaseEvent

	StepID   string          `json:"step_id"`
	StepKind models.StepKind `json:"step_kind"`
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
}

func (s StepTested) GetType() EventType {
	return StepTestedEvent
}

func NewBaseEvent(eventType EventType, automationID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		AutomationID: automationID,
		Metadata:     make(map[string]any),
	}
}

// NewAutomationSaved builds the event for a saved definition.
func NewAutomationSaved(def models.WorkflowDefinition, created bool, mappings []models.IDMapping) AutomationSaved {
	kinds := make([]string, len(def.Triggers))
	for i, t := range def.Triggers {
		kinds[i] = string(t.Kind)
	}

	return AutomationSaved{
		BaseEvent:    NewBaseEvent(AutomationSavedEvent, def.ID),
		Created:      created,
		Name:         def.Name,
		StepCount:    len(def.Steps),
		TriggerKinds: kinds,
		IDMappings:   mappings,
	}
}

func NewAutomationStepsSaved(automationID string, stepCount int) AutomationStepsSaved {
	return AutomationStepsSaved{
		BaseEvent: NewBaseEvent(AutomationStepsSavedEvent, automationID),
		StepCount: stepCount,
	}
}

func NewStepTested(automationID string, step models.Step, success bool, message string) StepTested {
	return StepTested{
		BaseEvent: NewBaseEvent(StepTestedEvent, automationID),
		StepID:    step.ID,
		StepKind:  step.Kind,
		Success:   success,
		Message:   message,
	}
}
