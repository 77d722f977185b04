package models

import (
	"regexp"
	"strings"
	"time"

	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
)

// DatabaseType tags a database with its operational purpose. The set
// is closed; "custom" covers everything operators invent ad hoc.
type DatabaseType string

const (
	TypeAttendance    DatabaseType = "attendance"
	TypeEvents        DatabaseType = "events"
	TypeTraining      DatabaseType = "training"
	TypeVolunteers    DatabaseType = "volunteers"
	TypeBeneficiaries DatabaseType = "beneficiaries"
	TypeCustom        DatabaseType = "custom"
)

var databaseTypes = map[DatabaseType]struct{}{
	TypeAttendance: {}, TypeEvents: {}, TypeTraining: {},
	TypeVolunteers: {}, TypeBeneficiaries: {}, TypeCustom: {},
}

// Valid reports whether t is one of the closed set.
func (t DatabaseType) Valid() bool {
	_, ok := databaseTypes[t]
	return ok
}

// AccessPolicy is the allow-list input from the authorization
// collaborator. An empty Roles list means open access.
type AccessPolicy struct {
	Roles   []string        `json:"roles"`
	UserIDs []domain.UserID `json:"user_ids"`
}

// Database is an operator-defined record collection with its own
// field schema.
//
// Invariants:
//   - Slug is unique across all databases and immutable once assigned
//   - Type is one of the closed DatabaseType set
//   - ParentID, when set, forms a tree (no cycles; enforced by
//     construction since parents must already exist)
type Database struct {
	ID           domain.DatabaseID  `json:"id"`
	Name         string             `json:"name"`
	Slug         string             `json:"slug"`
	Type         DatabaseType       `json:"type"`
	ParentID     *domain.DatabaseID `json:"parent_id,omitempty"`
	Active       bool               `json:"active"`
	Public       bool               `json:"public"`
	SelfRegister bool               `json:"self_register"`
	Policy       AccessPolicy       `json:"policy"`
	CreatedBy    domain.UserID      `json:"created_by"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewDatabase validates and constructs a database. The slug is
// assigned later by the service once uniqueness is settled.
func NewDatabase(id domain.DatabaseID, name string, dbType DatabaseType, parent *domain.DatabaseID, policy AccessPolicy, creator domain.UserID, now time.Time) (*Database, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "database name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "database name must be 128 characters or less")
	}
	if !dbType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown database type %q", dbType)
	}
	return &Database{
		ID:        id,
		Name:      name,
		Type:      dbType,
		ParentID:  parent,
		Active:    true,
		Policy:    policy,
		CreatedBy: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasAccess applies the access policy: superusers always pass, then
// the explicit user allow-list, then the role allow-list (empty list
// means open access).
func (d *Database) HasAccess(p domain.Principal) bool {
	if p.Superuser {
		return true
	}
	for _, uid := range d.Policy.UserIDs {
		if uid == p.UserID {
			return true
		}
	}
	if len(d.Policy.Roles) == 0 {
		return true
	}
	for _, role := range d.Policy.Roles {
		if role == p.Role {
			return true
		}
	}
	return false
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the base slug for a database name: lower-cased,
// non-alphanumeric runs collapsed to single hyphens. Collision
// suffixing is the service's job.
func Slugify(name string) string {
	slug := slugStripRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}
