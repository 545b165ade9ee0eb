// Package factory builds the configured storage backend.
package factory

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/news-pulse/internal/storage"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage/pg"
	"github.com/DjordjeVuckovic/news-pulse/pkg/server"
)

// NewStore creates a storage.Store for the configured type, plus the health
// checker the server should probe.
func NewStore(ctx context.Context, cfg *StorageConfig) (storage.Store, server.HealthChecker, error) {
	switch cfg.Type {
	case storage.PG:
		pool, err := pg.NewConnectionPool(ctx, *cfg.Pg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			return nil, nil, err
		}

		store, err := pg.NewStore(pool)
		if err != nil {
			return nil, nil, err
		}
		return store, pg.NewHealthChecker(pool), nil

	case storage.InMem:
		return in_mem.NewStore(), server.NewOkHealthChecker(), nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
