package external

import (
	"context"
	"sync"

	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

// Constituent is a constituent record as supplied by the constituent
// registry collaborator.
type Constituent struct {
	ConstituentID string `json:"constituent_id"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name,omitempty"`
	LastName      string `json:"last_name"`
	EmailAddr     string `json:"email,omitempty"`
	PhoneNo       string `json:"phone,omitempty"`
	// VoterID is the election-commission identifier.
	VoterID  string `json:"voter_id,omitempty"`
	District string `json:"district,omitempty"`
	Category string `json:"category,omitempty"`
}

func (c Constituent) Kind() domain.SourceKind { return domain.SourceConstituent }
func (c Constituent) ID() string              { return c.ConstituentID }
func (c Constituent) Email() string           { return c.EmailAddr }
func (c Constituent) Phone() string           { return c.PhoneNo }
func (c Constituent) SecondaryID() string     { return c.VoterID }

func (c Constituent) Label() string {
	if c.Category != "" {
		return c.Category
	}
	return c.District
}

func (c Constituent) FirstLast() (string, string) { return c.FirstName, c.LastName }

func (c Constituent) DisplayName() string {
	return joinNonEmpty(c.FirstName, c.MiddleName, c.LastName)
}

// ConstituentDirectory is the in-memory constituent registry adapter.
type ConstituentDirectory struct {
	mu           sync.RWMutex
	constituents []Constituent
}

// NewConstituentDirectory seeds a directory with the given registry snapshot.
func NewConstituentDirectory(constituents []Constituent) *ConstituentDirectory {
	return &ConstituentDirectory{constituents: constituents}
}

// Replace swaps the registry snapshot.
func (d *ConstituentDirectory) Replace(constituents []Constituent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constituents = constituents
}

func (d *ConstituentDirectory) Kind() domain.SourceKind { return domain.SourceConstituent }

func (d *ConstituentDirectory) Scan(_ context.Context, query string) ([]Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Person
	for _, c := range d.constituents {
		if matchesPerson(c, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *ConstituentDirectory) Get(_ context.Context, id string) (Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.constituents {
		if c.ConstituentID == id {
			return c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
