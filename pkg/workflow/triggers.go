package workflow

import (
	"fmt"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/triggers"
)

// AddTrigger appends a trigger of kind with its default configuration.
func (b *Builder) AddTrigger(def models.WorkflowDefinition, kind models.TriggerKind) (models.WorkflowDefinition, error) {
	t, err := triggers.Default(kind)
	if err != nil {
		return def, err
	}

	next := def.Clone()
	next.Triggers = append(next.Triggers, t)

	return next, nil
}

// UpdateTrigger applies patch to the trigger at index.
func (b *Builder) UpdateTrigger(def models.WorkflowDefinition, index int, patch models.TriggerPatch) (models.WorkflowDefinition, error) {
	if err := checkIndex(def, index); err != nil {
		return def, err
	}

	t, err := triggers.Apply(def.Triggers[index], patch)
	if err != nil {
		return def, err
	}

	next := def.Clone()
	next.Triggers[index] = t

	return next, nil
}

// RemoveTrigger drops the trigger at index. The last trigger cannot be removed.
func (b *Builder) RemoveTrigger(def models.WorkflowDefinition, index int) (models.WorkflowDefinition, error) {
	if err := checkIndex(def, index); err != nil {
		return def, err
	}

	if len(def.Triggers) == 1 {
		return def, &InvariantError{Op: "remove_trigger", Reason: "a workflow must keep at least one trigger"}
	}

	next := def.Clone()
	next.Triggers = append(next.Triggers[:index], next.Triggers[index+1:]...)

	return next, nil
}

// RegenerateWebhookKey issues a new key for the api trigger at index.
func (b *Builder) RegenerateWebhookKey(def models.WorkflowDefinition, index int) (models.WorkflowDefinition, error) {
	if err := checkIndex(def, index); err != nil {
		return def, err
	}

	if def.Triggers[index].Kind != models.TriggerKindAPI {
		return def, fmt.Errorf("%w: trigger %d is %s", ErrNotAPITrigger, index, def.Triggers[index].Kind)
	}

	previous := def.Triggers[index].Config.WebhookKey

	key := triggers.NewWebhookKey()
	for key == previous {
		key = triggers.NewWebhookKey()
	}

	next := def.Clone()
	next.Triggers[index].Config.WebhookKey = key

	return next, nil
}

func checkIndex(def models.WorkflowDefinition, index int) error {
	if index < 0 || index >= len(def.Triggers) {
		return fmt.Errorf("%w: index %d of %d", ErrTriggerNotFound, index, len(def.Triggers))
	}

	return nil
}
