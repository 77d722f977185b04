// Package external adapts collaborator-owned person sources
// (parliament members, constituents) for search and identity
// resolution. The core reads these by value and never writes them.
package external

import (
	"context"

	"persondb/pkg/domain"
)

// Person is the capability interface every person-record kind
// implements. Consumers dispatch through it instead of type-switching
// on concrete source types.
type Person interface {
	Kind() domain.SourceKind
	ID() string
	DisplayName() string
	FirstLast() (first, last string)
	Email() string
	Phone() string
	// SecondaryID is the source-specific identifier (member number,
	// voter ID) that operators search by.
	SecondaryID() string
	// Label is the source's status/category tag shown in results.
	Label() string
}

// Directory is a read-only person source. Scan returns candidates
// whose name, email, phone, or secondary identifier contains the
// query, case-insensitively.
type Directory interface {
	Kind() domain.SourceKind
	Scan(ctx context.Context, query string) ([]Person, error)
	Get(ctx context.Context, id string) (Person, error)
}
