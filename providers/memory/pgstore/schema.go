package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// createTableSQL creates the record table. The seq column (BIGSERIAL)
// orders records that share a created_at value.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    seq          BIGSERIAL NOT NULL,
    parent_class TEXT NOT NULL,
    parent_id    TEXT NOT NULL,
    message_id   TEXT,
    role         TEXT NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT 'text',
    metadata     JSONB,
    driver       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// createScopeIndexSQL backs the equality filter every query and delete uses.
const createScopeIndexSQL = `CREATE INDEX IF NOT EXISTS %s
    ON %s (parent_class, parent_id, driver, created_at, seq)`

// EnsureSchema creates the table and its index if they do not already
// exist. Production deployments should manage the schema with migration
// tooling instead.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createTableSQL, s.tableName)); err != nil {
		return fmt.Errorf("pgstore: create table: %w", err)
	}

	indexSQL := fmt.Sprintf(createScopeIndexSQL, s.indexName(), s.tableName)
	if _, err := s.db.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("pgstore: create scope index: %w", err)
	}
	return nil
}

func (s *Store) indexName() string {
	return pgx.Identifier{"idx_" + s.baseName + "_scope"}.Sanitize()
}
