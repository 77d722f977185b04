package search

import (
	"context"

	recordmodels "persondb/internal/record/models"
	recordservice "persondb/internal/record/service"
	"persondb/internal/external"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

// EntrySource adapts the record store into a search source. Entries
// match on the maintained search projection and on raw attribute
// values, so data present only in imported columns is still findable.
type EntrySource struct {
	records *recordservice.Service
}

// NewEntrySource constructs the record-store search source.
func NewEntrySource(records *recordservice.Service) *EntrySource {
	return &EntrySource{records: records}
}

func (s *EntrySource) Kind() domain.SourceKind { return domain.SourceEntry }

func (s *EntrySource) Scan(ctx context.Context, query string) ([]external.Person, error) {
	entries, err := s.records.ScanMatching(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]external.Person, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryCandidate{
			entry:       entry,
			displayName: s.records.DisplayName(ctx, entry),
		})
	}
	return out, nil
}

func (s *EntrySource) Get(ctx context.Context, id string) (external.Person, error) {
	entryID, err := domain.ParseEntryID(id)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	entry, err := s.records.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return entryCandidate{entry: entry, displayName: s.records.DisplayName(ctx, entry)}, nil
}

// entryCandidate presents one entry through the person capability
// interface.
type entryCandidate struct {
	entry       *recordmodels.Entry
	displayName string
}

func (c entryCandidate) Kind() domain.SourceKind { return domain.SourceEntry }
func (c entryCandidate) ID() string              { return c.entry.ID.String() }
func (c entryCandidate) DisplayName() string     { return c.displayName }
func (c entryCandidate) Email() string           { return c.entry.Identity.Email }
func (c entryCandidate) Phone() string           { return c.entry.Identity.Phone }
func (c entryCandidate) SecondaryID() string     { return "" }
func (c entryCandidate) Label() string           { return string(c.entry.Status) }

func (c entryCandidate) FirstLast() (string, string) {
	return c.entry.Identity.FirstName, c.entry.Identity.LastName
}
