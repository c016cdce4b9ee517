// Package redis provides a Redis persistence implementation for automations and templates.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	automationPrefix = "automation:"
	templatePrefix   = "automation-template:"
)

// Persistence implements persistence.Store on top of Redis. Each automation
// and template is a JSON string value.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
}

var _ persistence.Store = (*Persistence)(nil)

// NewPersistence connects to a redis:// url.
func NewPersistence(ctx context.Context, logger *slog.Logger, url string) (*Persistence, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	p := &Persistence{client: redis.NewClient(opts), logger: logger}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.client.Ping(ctx).Err(); err != nil {
		_ = p.client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return p, nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(client redis.UniversalClient, logger *slog.Logger) *Persistence {
	return &Persistence{client: client, logger: logger}
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return persistence.NewAutomationError("HealthCheck", "", fmt.Errorf("%w: %v", persistence.ErrUnavailable, err))
	}

	return nil
}

// Create stores a new automation under a fresh id.
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

	ok, err := p.client.SetNX(ctx, automationPrefix+stored.ID, body, 0).Result()
	if err != nil {
		return persistence.CreateResult{}, persistence.NewAutomationError("Create", stored.ID, err)
	}

	if !ok {
		return persistence.CreateResult{}, persistence.NewAutomationError("Create", stored.ID, persistence.ErrAutomationAlreadyPersisted)
	}

	return persistence.CreateResult{ID: stored.ID, Steps: mappings}, nil
}

// Update replaces an existing automation.
func (p *Persistence) Update(ctx context.Context, id string, def models.WorkflowDefinition) error {
	stored := def.Clone()
	stored.ID = id

	body, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal automation %s: %w", id, err)
	}

	ok, err := p.client.SetXX(ctx, automationPrefix+id, body, 0).Result()
	if err != nil {
		return persistence.NewAutomationError("Update", id, err)
	}

	if !ok {
		return persistence.NewAutomationError("Update", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

// UpdateStepsOnly swaps the steps of a stored automation inside an optimistic transaction.
func (p *Persistence) UpdateStepsOnly(ctx context.Context, id string, steps []models.Step) error {
	key := automationPrefix + id

	err := p.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := load(ctx, tx, key)
		if err != nil {
			return err
		}

		stored.Steps = models.CloneSteps(steps)

		body, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal automation %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, body, 0)

			return nil
		})

		return err
	}, key)
	if err != nil {
		return persistence.NewAutomationError("UpdateStepsOnly", id, err)
	}

	return nil
}

// AutomationByID loads a stored automation.
func (p *Persistence) AutomationByID(ctx context.Context, id string) (models.WorkflowDefinition, error) {
	def, err := load(ctx, p.client, automationPrefix+id)
	if err != nil {
		return models.WorkflowDefinition{}, persistence.NewAutomationError("AutomationByID", id, err)
	}

	return def, nil
}

// Template loads a template by id.
func (p *Persistence) Template(ctx context.Context, id string) (models.Template, error) {
	body, err := p.client.Get(ctx, templatePrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Template{}, fmt.Errorf("template %q: %w", id, persistence.ErrTemplateNotFound)
		}

		return models.Template{}, fmt.Errorf("failed to fetch template %s: %w", id, err)
	}

	var tmpl models.Template
	if err := json.Unmarshal(body, &tmpl); err != nil {
		return models.Template{}, fmt.Errorf("failed to unmarshal template %s: %w", id, err)
	}

	tmpl.ID = id

	return tmpl, nil
}

// SaveTemplate stores a template.
func (p *Persistence) SaveTemplate(ctx context.Context, tmpl models.Template) error {
	body, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template %s: %w", tmpl.ID, err)
	}

	return p.client.Set(ctx, templatePrefix+tmpl.ID, body, 0).Err()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (models.WorkflowDefinition, error) {
	body, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.WorkflowDefinition{}, persistence.ErrAutomationNotFound
		}

		return models.WorkflowDefinition{}, err
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(body, &def); err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return def, nil
}
