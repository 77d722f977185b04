// Package store provides database/field persistence. The in-memory
// implementation backs unit tests and single-node deployments; the
// Postgres implementation is for production.
package store

import (
	"context"
	"strings"
	"sync"

	"persondb/internal/schema/models"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

// MemoryDatabaseStore keeps databases in a mutex-guarded map. Slug
// uniqueness is enforced under the write lock, which gives the same
// check-and-set atomicity a SQL unique constraint provides.
type MemoryDatabaseStore struct {
	mu      sync.RWMutex
	byID    map[domain.DatabaseID]*models.Database
	slugSet map[string]domain.DatabaseID
}

// NewMemoryDatabaseStore constructs an empty in-memory database store.
func NewMemoryDatabaseStore() *MemoryDatabaseStore {
	return &MemoryDatabaseStore{
		byID:    make(map[domain.DatabaseID]*models.Database),
		slugSet: make(map[string]domain.DatabaseID),
	}
}

func (s *MemoryDatabaseStore) CreateIfSlugAvailable(_ context.Context, db *models.Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.slugSet[db.Slug]; taken {
		return sentinel.ErrAlreadyUsed
	}
	copied := *db
	s.byID[db.ID] = &copied
	s.slugSet[db.Slug] = db.ID
	return nil
}

func (s *MemoryDatabaseStore) FindByID(_ context.Context, id domain.DatabaseID) (*models.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if db, ok := s.byID[id]; ok {
		copied := *db
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryDatabaseStore) FindBySlug(_ context.Context, slug string) (*models.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.slugSet[slug]; ok {
		copied := *s.byID[id]
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryDatabaseStore) FindByName(_ context.Context, name string) (*models.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, db := range s.byID {
		if strings.EqualFold(db.Name, name) {
			copied := *db
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryDatabaseStore) List(_ context.Context) ([]*models.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Database, 0, len(s.byID))
	for _, db := range s.byID {
		copied := *db
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryDatabaseStore) Delete(_ context.Context, id domain.DatabaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.slugSet, db.Slug)
	delete(s.byID, id)
	return nil
}

// MemoryFieldStore keeps field definitions in a mutex-guarded map
// keyed by database.
type MemoryFieldStore struct {
	mu       sync.RWMutex
	byDB     map[domain.DatabaseID][]*models.Field
	nameSets map[domain.DatabaseID]map[string]struct{}
}

// NewMemoryFieldStore constructs an empty in-memory field store.
func NewMemoryFieldStore() *MemoryFieldStore {
	return &MemoryFieldStore{
		byDB:     make(map[domain.DatabaseID][]*models.Field),
		nameSets: make(map[domain.DatabaseID]map[string]struct{}),
	}
}

func (s *MemoryFieldStore) CreateIfNameAvailable(_ context.Context, field *models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.nameSets[field.DatabaseID]
	if names == nil {
		names = make(map[string]struct{})
		s.nameSets[field.DatabaseID] = names
	}
	key := strings.ToLower(field.Name)
	if _, taken := names[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	copied := *field
	s.byDB[field.DatabaseID] = append(s.byDB[field.DatabaseID], &copied)
	names[key] = struct{}{}
	return nil
}

func (s *MemoryFieldStore) ListByDatabase(_ context.Context, dbID domain.DatabaseID) ([]*models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields := s.byDB[dbID]
	out := make([]*models.Field, 0, len(fields))
	for _, f := range fields {
		copied := *f
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryFieldStore) DeleteByDatabase(_ context.Context, dbID domain.DatabaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byDB, dbID)
	delete(s.nameSets, dbID)
	return nil
}
