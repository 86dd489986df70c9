package engine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bupple-inc/ai-engine/core/config"
	"github.com/bupple-inc/ai-engine/providers/memory"
	"github.com/bupple-inc/ai-engine/providers/memory/filestore"
	"github.com/bupple-inc/ai-engine/providers/memory/inmemory"
	"github.com/bupple-inc/ai-engine/providers/memory/pgstore"
)

// OpenStore builds the history store selected by cfg.Store. The returned
// close function releases the store's resources and is never nil.
//
// For postgres it connects a pool to cfg.DSN and creates the table and index
// when they are missing.
func OpenStore(ctx context.Context, cfg config.MemoryConfig) (memory.Store, func(), error) {
	noop := func() {}

	switch cfg.Store {
	case config.StoreMemory:
		return inmemory.New(), noop, nil

	case config.StoreFile:
		if cfg.FilePath == "" {
			return nil, noop, fmt.Errorf("engine: file store: file path not set")
		}
		return filestore.New(cfg.FilePath), noop, nil

	case config.StorePostgres:
		if cfg.DSN == "" {
			return nil, noop, fmt.Errorf("engine: postgres store: dsn not set")
		}
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("engine: postgres store: connect: %w", err)
		}
		store := pgstore.New(pool, pgstore.WithTableName(cfg.TableName))
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("engine: postgres store: %w", err)
		}
		return store, pool.Close, nil
	}

	return nil, noop, fmt.Errorf("engine: unknown memory store %q", cfg.Store)
}
