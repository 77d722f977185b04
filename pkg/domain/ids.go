// Package domain holds identifier types shared across feature packages.
//
// IDs are distinct named UUID types so a FieldID can never be passed
// where an EntryID is expected; the compiler enforces it.
package domain

import (
	"github.com/google/uuid"

	dErrors "persondb/pkg/domain-errors"
)

type (
	// UserID identifies a principal from the auth collaborator.
	UserID uuid.UUID
	// DatabaseID identifies an operator-defined record collection.
	DatabaseID uuid.UUID
	// FieldID identifies a field definition within a database.
	FieldID uuid.UUID
	// EntryID identifies one record in a database.
	EntryID uuid.UUID
	// PersonLinkID identifies a cross-source identity-resolution record.
	PersonLinkID uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id DatabaseID) String() string   { return uuid.UUID(id).String() }
func (id FieldID) String() string      { return uuid.UUID(id).String() }
func (id EntryID) String() string      { return uuid.UUID(id).String() }
func (id PersonLinkID) String() string { return uuid.UUID(id).String() }

// The ID types implement encoding.TextMarshaler/TextUnmarshaler so
// JSON carries them as canonical UUID strings, not byte arrays.

func (id UserID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id DatabaseID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id FieldID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id EntryID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id PersonLinkID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(data []byte) error       { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *DatabaseID) UnmarshalText(data []byte) error   { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *FieldID) UnmarshalText(data []byte) error      { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *EntryID) UnmarshalText(data []byte) error      { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *PersonLinkID) UnmarshalText(data []byte) error { return (*uuid.UUID)(id).UnmarshalText(data) }

func (id UserID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id DatabaseID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PersonLinkID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewDatabaseID allocates a fresh database identifier.
func NewDatabaseID() DatabaseID { return DatabaseID(uuid.New()) }

// NewFieldID allocates a fresh field identifier.
func NewFieldID() FieldID { return FieldID(uuid.New()) }

// NewEntryID allocates a fresh entry identifier.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// NewPersonLinkID allocates a fresh person-link identifier.
func NewPersonLinkID() PersonLinkID { return PersonLinkID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid id %q", raw)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

// ParseDatabaseID parses and validates a database ID from its string form.
func ParseDatabaseID(raw string) (DatabaseID, error) {
	parsed, err := parseUUID(raw)
	return DatabaseID(parsed), err
}

// ParseFieldID parses and validates a field ID from its string form.
func ParseFieldID(raw string) (FieldID, error) {
	parsed, err := parseUUID(raw)
	return FieldID(parsed), err
}

// ParseEntryID parses and validates an entry ID from its string form.
func ParseEntryID(raw string) (EntryID, error) {
	parsed, err := parseUUID(raw)
	return EntryID(parsed), err
}

// ParsePersonLinkID parses and validates a person-link ID from its string form.
func ParsePersonLinkID(raw string) (PersonLinkID, error) {
	parsed, err := parseUUID(raw)
	return PersonLinkID(parsed), err
}
