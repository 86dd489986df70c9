package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/memory"
)

// DefaultTableName is the PostgreSQL table used when no custom name is provided.
const DefaultTableName = "engine_memory"

// Querier abstracts the pgx query methods needed by Store.
// Both *pgxpool.Pool and pgx.Tx satisfy this interface, allowing
// callers to inject either a connection pool or a single transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements [memory.Store] with PostgreSQL persistence.
// Thread safety is handled by the underlying pgx connection pool; no
// application-level mutex is needed.
type Store struct {
	db        Querier
	baseName  string
	tableName string
	now       func() time.Time
}

var _ memory.Store = (*Store)(nil)

// Option configures optional Store behavior.
type Option func(*Store)

// WithTableName overrides the default table name ("engine_memory").
// The name is sanitized via pgx.Identifier since it is interpolated into
// queries via fmt.Sprintf.
func WithTableName(name string) Option {
	return func(s *Store) {
		if name == "" {
			return
		}
		s.baseName = name
		s.tableName = pgx.Identifier{name}.Sanitize()
	}
}

// New creates a PostgreSQL-backed store. db is typically a *pgxpool.Pool.
func New(db Querier, opts ...Option) *Store {
	store := &Store{
		db:        db,
		baseName:  DefaultTableName,
		tableName: DefaultTableName,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Create inserts record. The ID and creation time are generated client side
// when missing so the caller sees them without a round trip; the seq column
// still orders records that share a timestamp.
func (s *Store) Create(ctx context.Context, record *memory.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}

	metadataJSON, err := marshalMetadata(record.Metadata)
	if err != nil {
		return fmt.Errorf("pgstore: encode metadata: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(id, parent_class, parent_id, message_id, role, content, type, metadata, driver, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.tableName)

	_, err = s.db.Exec(ctx, query,
		record.ID,
		record.ParentClass,
		record.ParentID,
		nullableString(record.MessageID),
		string(record.Role),
		record.Content,
		string(record.Type.TypeOrText()),
		metadataJSON,
		string(record.Driver),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgstore: insert: %w", err)
	}
	return nil
}

// Query returns the scope's records ordered by created_at, then seq.
func (s *Store) Query(ctx context.Context, scope memory.Scope) ([]memory.Record, error) {
	query := fmt.Sprintf(`SELECT id::text, parent_class, parent_id, message_id, role, content, type, metadata, driver, created_at
		FROM %s WHERE parent_class = $1 AND parent_id = $2 AND driver = $3
		ORDER BY created_at ASC, seq ASC`, s.tableName)

	rows, err := s.db.Query(ctx, query, scope.ParentClass, scope.ParentID, string(scope.Driver))
	if err != nil {
		return nil, fmt.Errorf("pgstore: query: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Delete removes every record in scope and returns the number of rows deleted.
func (s *Store) Delete(ctx context.Context, scope memory.Scope) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE parent_class = $1 AND parent_id = $2 AND driver = $3`, s.tableName)
	tag, err := s.db.Exec(ctx, query, scope.ParentClass, scope.ParentID, string(scope.Driver))
	if err != nil {
		return 0, fmt.Errorf("pgstore: delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanRecords returns an empty non-nil slice when no rows are present.
func scanRecords(rows pgx.Rows) ([]memory.Record, error) {
	records := []memory.Record{}

	for rows.Next() {
		var (
			record       memory.Record
			messageID    *string
			role         string
			contentType  string
			metadataJSON []byte
			driver       string
		)
		if err := rows.Scan(
			&record.ID, &record.ParentClass, &record.ParentID, &messageID,
			&role, &record.Content, &contentType, &metadataJSON, &driver, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgstore: scan row: %w", err)
		}

		record.MessageID = derefString(messageID)
		record.Role = ai.MessageRole(role)
		record.Type = ai.ContentType(contentType)
		record.Driver = ai.Provider(driver)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
				slog.Warn("pgstore: dropping undecodable metadata", "id", record.ID, "error", err)
			}
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate rows: %w", err)
	}
	return records, nil
}

// marshalMetadata maps empty metadata to SQL NULL instead of "{}".
func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	return json.Marshal(metadata)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString safely dereferences a *string, returning "" for nil.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
