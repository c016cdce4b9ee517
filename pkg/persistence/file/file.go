// Package file provides a file-based persistence implementation for automations and templates.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/automations/pkg/persistence"
)

// Persistence implements persistence.Store using the file system. Automations
// live in <root>/automations/<id>.json and templates in
// <root>/templates/<id>.{yaml,yml,json}.
type Persistence struct {
	root string
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{
		root: strings.Replace(root, "file://", "", 1),
	}
}

var _ persistence.Store = (*Persistence)(nil)

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return persistence.NewAutomationError("HealthCheck", "", persistence.ErrUnavailable)
	}

	return nil
}
