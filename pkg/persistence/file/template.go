package file

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"gopkg.in/yaml.v3"
)

var templateExtensions = []string{".yaml", ".yml", ".json"}

// Template loads a template by id. YAML and JSON files are both accepted.
func (fp *Persistence) Template(_ context.Context, id string) (models.Template, error) {
	if id == "" || id != filepath.Base(id) {
		return models.Template{}, fmt.Errorf("template %q: %w", id, persistence.ErrTemplateNotFound)
	}

	for _, ext := range templateExtensions {
		body, err := os.ReadFile(filepath.Clean(path.Join(fp.root, "templates", id+ext)))
		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			return models.Template{}, fmt.Errorf("failed to read template %s: %w", id, err)
		}

		var tmpl models.Template
		if err := yaml.Unmarshal(body, &tmpl); err != nil {
			return models.Template{}, fmt.Errorf("failed to parse template %s: %w", id, err)
		}

		if tmpl.ID == "" {
			tmpl.ID = id
		}

		return tmpl, nil
	}

	return models.Template{}, fmt.Errorf("template %q: %w", id, persistence.ErrTemplateNotFound)
}

// SaveTemplate writes a template as YAML.
func (fp *Persistence) SaveTemplate(_ context.Context, tmpl models.Template) error {
	if tmpl.ID == "" || tmpl.ID != filepath.Base(tmpl.ID) {
		return fmt.Errorf("invalid template id %q", tmpl.ID)
	}

	err := os.MkdirAll(path.Join(fp.root, "templates"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create templates directory: %w", err)
	}

	data, err := yaml.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template %s: %w", tmpl.ID, err)
	}

	return os.WriteFile(path.Join(fp.root, "templates", tmpl.ID+".yaml"), data, 0600)
}
