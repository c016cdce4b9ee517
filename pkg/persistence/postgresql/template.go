package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
)

// Template loads a template by id.
func (p *Persistence) Template(ctx context.Context, id string) (models.Template, error) {
	var body []byte

	err := p.db.QueryRowContext(ctx, `SELECT definition FROM automation_templates WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// SaveTemplate inserts or replaces a template.
func (p *Persistence) SaveTemplate(ctx context.Context, tmpl models.Template) error {
	body, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template %s: %w", tmpl.ID, err)
	}

	query := `
		INSERT INTO automation_templates (id, name, definition)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, definition = EXCLUDED.definition
	`

	_, err = p.db.ExecContext(ctx, query, tmpl.ID, tmpl.Name, body)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", tmpl.ID, err)
	}

	return nil
}
