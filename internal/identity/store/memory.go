// Package store provides person-link persistence: in-memory for unit
// tests and single-node use, Postgres with the membership sets in
// JSONB.
package store

import (
	"context"
	"slices"
	"sync"

	"persondb/internal/identity/models"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

// Memory keeps person links in a mutex-guarded map. Execute holds the
// write lock across validate and mutate.
type Memory struct {
	mu    sync.RWMutex
	links map[domain.PersonLinkID]*models.PersonLink
	// order preserves creation order so List is deterministic.
	order []domain.PersonLinkID
}

// NewMemory constructs an empty in-memory person-link store.
func NewMemory() *Memory {
	return &Memory{links: make(map[domain.PersonLinkID]*models.PersonLink)}
}

func (s *Memory) Create(_ context.Context, link *models.PersonLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[link.ID]; exists {
		return sentinel.ErrConflict
	}
	s.links[link.ID] = cloneLink(link)
	s.order = append(s.order, link.ID)
	return nil
}

func (s *Memory) FindByID(_ context.Context, id domain.PersonLinkID) (*models.PersonLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if link, ok := s.links[id]; ok {
		return cloneLink(link), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) List(_ context.Context) ([]*models.PersonLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.PersonLink, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneLink(s.links[id]))
	}
	return out, nil
}

func (s *Memory) FindByEntry(_ context.Context, entryID domain.EntryID) ([]*models.PersonLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PersonLink
	for _, id := range s.order {
		if link := s.links[id]; link.HasEntry(entryID) {
			out = append(out, cloneLink(link))
		}
	}
	return out, nil
}

func (s *Memory) FindByRef(_ context.Context, ref models.SourceRef) ([]*models.PersonLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PersonLink
	for _, id := range s.order {
		if link := s.links[id]; link.HasRef(ref) {
			out = append(out, cloneLink(link))
		}
	}
	return out, nil
}

func (s *Memory) Execute(_ context.Context, id domain.PersonLinkID, validate func(*models.PersonLink) error, mutate func(*models.PersonLink)) (*models.PersonLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(link); err != nil {
		return nil, err
	}
	mutate(link)
	return cloneLink(link), nil
}

func cloneLink(link *models.PersonLink) *models.PersonLink {
	copied := *link
	copied.Refs = slices.Clone(link.Refs)
	copied.EntryIDs = slices.Clone(link.EntryIDs)
	return &copied
}
