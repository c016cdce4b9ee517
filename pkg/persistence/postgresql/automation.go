package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/google/uuid"
)

// Create inserts a new automation with permanent ids.
func (p *Persistence) Create(ctx context.Context, def models.WorkflowDefinition) (persistence.CreateResult, error) {
	if def.IsPersisted() {
		return persistence.CreateResult{}, persistence.NewAutomationError("Create", def.ID, persistence.ErrAutomationAlreadyPersisted)
	}

	stored, mappings := persistence.AssignPermanentIDs(def)
	stored.ID = uuid.NewString()

	body, err := json.Marshal(stored)
	if err != nil {
		return persistence.CreateResult{}, fmt.Errorf("failed to marshal automation: %w", err)
	}

	query := `
		INSERT INTO automations (id, name, definition, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`

	_, err = p.db.ExecContext(ctx, query, stored.ID, stored.Name, body)
	if err != nil {
		return persistence.CreateResult{}, persistence.NewAutomationError("Create", stored.ID, err)
	}

	p.logger.DebugContext(ctx, "automation created", "automation_id", stored.ID, "steps", len(stored.Steps))

	return persistence.CreateResult{ID: stored.ID, Steps: mappings}, nil
}

// Update replaces the stored definition.
func (p *Persistence) Update(ctx context.Context, id string, def models.WorkflowDefinition) error {
	stored := def.Clone()
	stored.ID = id

	body, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal automation %s: %w", id, err)
	}

	query := `
		UPDATE automations
		SET name = $2, definition = $3, updated_at = NOW()
		WHERE id = $1
	`

	return p.execOne(ctx, "Update", id, query, id, stored.Name, body)
}

// UpdateStepsOnly replaces the steps array inside the stored definition.
func (p *Persistence) UpdateStepsOnly(ctx context.Context, id string, steps []models.Step) error {
	if steps == nil {
		steps = []models.Step{}
	}

	body, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps of %s: %w", id, err)
	}

	query := `
		UPDATE automations
		SET definition = jsonb_set(definition, '{steps}', $2::jsonb), updated_at = NOW()
		WHERE id = $1
	`

	return p.execOne(ctx, "UpdateStepsOnly", id, query, id, body)
}

// AutomationByID loads a stored automation.
func (p *Persistence) AutomationByID(ctx context.Context, id string) (models.WorkflowDefinition, error) {
	if uuid.Validate(id) != nil {
		return models.WorkflowDefinition{}, persistence.NewAutomationError("AutomationByID", id, persistence.ErrAutomationNotFound)
	}

	var body []byte

	err := p.db.QueryRowContext(ctx, `SELECT definition FROM automations WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WorkflowDefinition{}, persistence.NewAutomationError("AutomationByID", id, persistence.ErrAutomationNotFound)
		}

		return models.WorkflowDefinition{}, persistence.NewAutomationError("AutomationByID", id, err)
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(body, &def); err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("failed to unmarshal automation %s: %w", id, err)
	}

	def.ID = id

	return def, nil
}

func (p *Persistence) execOne(ctx context.Context, op, id, query string, args ...any) error {
	if uuid.Validate(id) != nil {
		return persistence.NewAutomationError(op, id, persistence.ErrAutomationNotFound)
	}

	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistence.NewAutomationError(op, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError(op, id, err)
	}

	if affected == 0 {
		return persistence.NewAutomationError(op, id, persistence.ErrAutomationNotFound)
	}

	return nil
}
