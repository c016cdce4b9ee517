package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/google/uuid"
)

// Create stores a new automation and assigns permanent ids to it and its steps.
func (fp *Persistence) Create(ctx context.Context, def models.WorkflowDefinition) (persistence.CreateResult, error) {
	if def.IsPersisted() {
		return persistence.CreateResult{}, persistence.NewAutomationError("Create", def.ID, persistence.ErrAutomationAlreadyPersisted)
	}

	stored, mappings := persistence.AssignPermanentIDs(def)
	stored.ID = uuid.NewString()

	if err := fp.write(stored); err != nil {
		return persistence.CreateResult{}, persistence.NewAutomationError("Create", stored.ID, err)
	}

	return persistence.CreateResult{ID: stored.ID, Steps: mappings}, nil
}

// Update replaces a stored automation.
func (fp *Persistence) Update(ctx context.Context, id string, def models.WorkflowDefinition) error {
	if _, err := fp.AutomationByID(ctx, id); err != nil {
		return err
	}

	stored := def.Clone()
	stored.ID = id

	if err := fp.write(stored); err != nil {
		return persistence.NewAutomationError("Update", id, err)
	}

	return nil
}

// UpdateStepsOnly replaces the steps of a stored automation and leaves the rest untouched.
func (fp *Persistence) UpdateStepsOnly(ctx context.Context, id string, steps []models.Step) error {
	stored, err := fp.AutomationByID(ctx, id)
	if err != nil {
		return err
	}

	stored.Steps = models.CloneSteps(steps)

	if err := fp.write(stored); err != nil {
		return persistence.NewAutomationError("UpdateStepsOnly", id, err)
	}

	return nil
}

// AutomationByID loads a stored automation.
func (fp *Persistence) AutomationByID(_ context.Context, id string) (models.WorkflowDefinition, error) {
	if id == "" || id != filepath.Base(id) {
		return models.WorkflowDefinition{}, persistence.NewAutomationError("AutomationByID", id, persistence.ErrAutomationNotFound)
	}

	body, err := os.ReadFile(fp.automationPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return models.WorkflowDefinition{}, persistence.NewAutomationError("AutomationByID", id, persistence.ErrAutomationNotFound)
		}

		return models.WorkflowDefinition{}, fmt.Errorf("failed to fetch automation %s: %w", id, err)
	}

	var def models.WorkflowDefinition

	if err := json.Unmarshal(body, &def); err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("failed to unmarshal automation %s: %w", id, err)
	}

	return def, nil
}

func (fp *Persistence) write(def models.WorkflowDefinition) error {
	err := os.MkdirAll(path.Join(fp.root, "automations"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create automations directory: %w", err)
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal automation %s: %w", def.ID, err)
	}

	return os.WriteFile(fp.automationPath(def.ID), data, 0600)
}

func (fp *Persistence) automationPath(id string) string {
	return filepath.Clean(path.Join(fp.root, "automations", id+".json"))
}
