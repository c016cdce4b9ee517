// Package persistence defines the storage contract for automation definitions and templates.
package persistence

import (
	"context"

	"github.com/dukex/automations/pkg/models"
)

// CreateResult is returned when a new automation is stored. Steps pairs every
// provisional step id with the permanent id the store assigned.
type CreateResult struct {
	ID    string             `json:"id"`
	Steps []models.IDMapping `json:"steps"`
}

// Persistence stores automation definitions. Implementations assign permanent
// ids on Create; the caller is responsible for remapping its own copy.
type Persistence interface {
	Create(ctx context.Context, def models.WorkflowDefinition) (CreateResult, error)
	Update(ctx context.Context, id string, def models.WorkflowDefinition) error
	UpdateStepsOnly(ctx context.Context, id string, steps []models.Step) error
	AutomationByID(ctx context.Context, id string) (models.WorkflowDefinition, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// TemplateSource provides the templates new automations are seeded from.
type TemplateSource interface {
	Template(ctx context.Context, id string) (models.Template, error)
}

// Store is a persistence backend that also serves templates.
type Store interface {
	Persistence
	TemplateSource
}
