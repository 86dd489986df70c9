// Package pgstore implements [memory.Store] on PostgreSQL using pgx/v5.
//
// Records live in a single table (engine_memory by default) filtered by the
// (parent_class, parent_id, driver) scope columns. Call [Store.EnsureSchema]
// once at startup during development; production deployments should manage
// the table with migrations.
//
// Usage:
//
//	pool, err := pgxpool.New(ctx, dsn)
//	if err != nil { ... }
//	store := pgstore.New(pool)
//	manager := memory.NewManager(store, memory.Config{Store: "postgres"})
package pgstore
