// Package store provides entry persistence: an in-memory
// implementation for unit tests and single-node use, and a Postgres
// implementation with the attribute bag in JSONB.
package store

import (
	"context"
	"maps"
	"strings"
	"sync"

	"persondb/internal/record/models"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

// Memory keeps entries in a mutex-guarded map. Execute holds the
// write lock across validate and mutate, giving the same atomicity a
// SELECT ... FOR UPDATE would.
type Memory struct {
	mu      sync.RWMutex
	entries map[domain.EntryID]*models.Entry
	// byDB preserves insertion order per database so column
	// introspection is deterministic.
	byDB map[domain.DatabaseID][]domain.EntryID
}

// NewMemory constructs an empty in-memory entry store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[domain.EntryID]*models.Entry),
		byDB:    make(map[domain.DatabaseID][]domain.EntryID),
	}
}

func (s *Memory) Create(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.ID]; exists {
		return sentinel.ErrConflict
	}
	s.entries[entry.ID] = cloneEntry(entry)
	s.byDB[entry.DatabaseID] = append(s.byDB[entry.DatabaseID], entry.ID)
	return nil
}

func (s *Memory) FindByID(_ context.Context, id domain.EntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[id]; ok {
		return cloneEntry(entry), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) ListByDatabase(_ context.Context, dbID domain.DatabaseID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDB[dbID]
	out := make([]*models.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneEntry(s.entries[id]))
	}
	return out, nil
}

func (s *Memory) Execute(_ context.Context, id domain.EntryID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(entry); err != nil {
		return nil, err
	}
	mutate(entry)
	return cloneEntry(entry), nil
}

func (s *Memory) ScanMatching(_ context.Context, query string) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, nil
	}
	var out []*models.Entry
	for _, dbIDs := range s.byDB {
		for _, id := range dbIDs {
			entry := s.entries[id]
			if entryMatches(entry, normalized) {
				out = append(out, cloneEntry(entry))
			}
		}
	}
	return out, nil
}

// entryMatches checks the projection first, then raw attribute values
// to catch data present only in imported columns.
func entryMatches(entry *models.Entry, normalized string) bool {
	if strings.Contains(entry.SearchText, normalized) {
		return true
	}
	for _, value := range entry.Attributes {
		if strings.Contains(strings.ToLower(value.Text()), normalized) {
			return true
		}
	}
	return false
}

func (s *Memory) DeleteByDatabase(_ context.Context, dbID domain.DatabaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.byDB[dbID] {
		delete(s.entries, id)
	}
	delete(s.byDB, dbID)
	return nil
}

func cloneEntry(entry *models.Entry) *models.Entry {
	copied := *entry
	copied.Attributes = maps.Clone(entry.Attributes)
	return &copied
}
