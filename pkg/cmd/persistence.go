// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/automations/pkg/client"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/persistence/file"
	"github.com/dukex/automations/pkg/persistence/postgresql"
	redisstore "github.com/dukex/automations/pkg/persistence/redis"
	"github.com/go-playground/validator/v10"
)

var supportedPersistenceProviders = []string{"file", "http", "https", "postgres", "postgresql", "redis", "rediss"}

// APIOptions configures the http(s) store.
type APIOptions struct {
	Token      string
	MaxRetries int
}

// NewPersistence picks the store from the url scheme. A url without a known
// scheme is a file store rooted at that path.
func NewPersistence(ctx context.Context, logger *slog.Logger, storeURL string, opts APIOptions) (persistence.Store, error) {
	switch parsePersistenceProvider(storeURL) {
	case "http", "https":
		cfg := client.Config{BaseURL: storeURL, Token: opts.Token, MaxRetries: opts.MaxRetries}
		if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
			return nil, fmt.Errorf("invalid api configuration: %w", err)
		}

		return client.New(cfg), nil
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, storeURL)
	case "redis", "rediss":
		return redisstore.NewPersistence(ctx, logger, storeURL)
	default:
		return file.NewPersistence(storeURL), nil
	}
}

func parsePersistenceProvider(storeURL string) string {
	parts := strings.Split(storeURL, "://")
	if len(parts) < 2 {
		return "file"
	}

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
