package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bupple-inc/ai-engine/providers/memory"
	"github.com/google/uuid"
)

// Store keeps every record in one JSON file. The file is read on each call
// and rewritten atomically on each change, so several processes may read it
// but only one should write.
type Store struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

var _ memory.Store = (*Store)(nil)

// New returns a store backed by path. The file and its directory are created
// on the first write.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() ([]memory.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []memory.Record{}, nil
		}
		return nil, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return []memory.Record{}, nil
	}

	var records []memory.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", s.path, err)
	}
	return records, nil
}

// save writes to a temp file then renames it over the target.
func (s *Store) save(records []memory.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("filestore: create dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("filestore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("filestore: rename temp file: %w", err)
	}
	return nil
}

// Create appends record to the file, assigning an ID and creation time when
// they are missing.
func (s *Store) Create(_ context.Context, record *memory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	return s.save(append(records, memory.CloneRecord(*record)))
}

// Query returns the scope's records, oldest first. File order is insertion
// order and breaks CreatedAt ties.
func (s *Store) Query(_ context.Context, scope memory.Scope) ([]memory.Record, error) {
	s.mu.RLock()
	records, err := s.load()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]memory.Record, 0)
	for _, record := range records {
		if scope.Matches(record) {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the scope's records. The file is left untouched when
// nothing matches.
func (s *Store) Delete(_ context.Context, scope memory.Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return 0, err
	}

	kept := make([]memory.Record, 0, len(records))
	for _, record := range records {
		if !scope.Matches(record) {
			kept = append(kept, record)
		}
	}
	deleted := int64(len(records) - len(kept))
	if deleted == 0 {
		return 0, nil
	}
	if err := s.save(kept); err != nil {
		return 0, err
	}
	return deleted, nil
}
