package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bupple-inc/ai-engine/providers/memory"
	"github.com/google/uuid"
)

// Store is a concurrency-safe, slice-backed record store.
// It uses RWMutex to guard access and is efficient for read-heavy workloads.
type Store struct {
	mu      sync.RWMutex
	records []memory.Record
	now     func() time.Time
}

// New returns an empty [Store] ready for immediate use.
func New() *Store {
	return &Store{
		records: []memory.Record{},
		now:     time.Now,
	}
}

// Ensure Store implements memory.Store at compile time.
var _ memory.Store = (*Store)(nil)

// Create appends a copy of record, assigning an ID and creation time when
// they are missing. The assigned values are written back to record.
func (s *Store) Create(_ context.Context, record *memory.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	s.records = append(s.records, memory.CloneRecord(*record))
	s.mu.Unlock()
	return nil
}

// Query returns copies of the scope's records, oldest first. The slice is
// kept in insertion order, so a stable sort on CreatedAt breaks ties by
// insertion.
func (s *Store) Query(_ context.Context, scope memory.Scope) ([]memory.Record, error) {
	s.mu.RLock()
	out := make([]memory.Record, 0)
	for _, record := range s.records {
		if scope.Matches(record) {
			out = append(out, memory.CloneRecord(record))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes every record in scope, retaining the underlying slice
// capacity.
func (s *Store) Delete(_ context.Context, scope memory.Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if scope.Matches(record) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	clear(s.records[len(kept):])
	s.records = kept
	return deleted, nil
}

// Len returns the number of records across all scopes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
