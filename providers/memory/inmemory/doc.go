// Package inmemory provides a concurrency-safe, slice-backed implementation
// of [memory.Store] for single-process use where history does not need to
// survive a restart.
// The main entry point is [New].
package inmemory
