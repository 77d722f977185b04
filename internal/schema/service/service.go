// Package service implements the schema registry: runtime definition
// of databases and their fields, plus access-policy checks. Everything
// else in the system depends on it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"persondb/internal/audit"
	"persondb/internal/schema/models"
	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
	"persondb/pkg/platform/sentinel"
	"persondb/pkg/requestcontext"
)

// DatabaseStore persists database definitions. CreateIfSlugAvailable
// must enforce slug uniqueness atomically (check-and-set under a lock
// or a unique constraint), returning sentinel.ErrAlreadyUsed on
// collision.
type DatabaseStore interface {
	CreateIfSlugAvailable(ctx context.Context, db *models.Database) error
	FindByID(ctx context.Context, id domain.DatabaseID) (*models.Database, error)
	FindBySlug(ctx context.Context, slug string) (*models.Database, error)
	FindByName(ctx context.Context, name string) (*models.Database, error)
	List(ctx context.Context) ([]*models.Database, error)
	Delete(ctx context.Context, id domain.DatabaseID) error
}

// FieldStore persists field definitions. CreateIfNameAvailable
// enforces per-database name uniqueness the same way.
type FieldStore interface {
	CreateIfNameAvailable(ctx context.Context, field *models.Field) error
	ListByDatabase(ctx context.Context, dbID domain.DatabaseID) ([]*models.Field, error)
	DeleteByDatabase(ctx context.Context, dbID domain.DatabaseID) error
}

// EntryPurger removes all entries of a database. Implemented by the
// record store service; injected to keep the dependency pointing from
// records to schemas, not back.
type EntryPurger interface {
	PurgeDatabase(ctx context.Context, dbID domain.DatabaseID) error
}

// Service is the schema registry.
type Service struct {
	databases DatabaseStore
	fields    FieldStore
	purger    EntryPurger
	auditor   audit.Publisher
	logger    *slog.Logger
}

// New constructs the schema registry service.
func New(databases DatabaseStore, fields FieldStore, purger EntryPurger, auditor audit.Publisher, logger *slog.Logger) *Service {
	return &Service{
		databases: databases,
		fields:    fields,
		purger:    purger,
		auditor:   auditor,
		logger:    logger,
	}
}

// maxSlugAttempts bounds the collision-suffix loop; hitting it means
// something is systematically wrong, not that names ran out.
const maxSlugAttempts = 1000

// DefineDatabase registers a new database. The name must be unique
// (case-insensitive); the slug is derived from the name and suffixed
// with an incrementing counter until it no longer collides.
func (s *Service) DefineDatabase(ctx context.Context, name string, dbType models.DatabaseType, parent *domain.DatabaseID, policy models.AccessPolicy, creator domain.UserID) (*models.Database, error) {
	db, err := models.NewDatabase(domain.NewDatabaseID(), name, dbType, parent, policy, creator, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if _, err := s.databases.FindByName(ctx, db.Name); err == nil {
		return nil, dErrors.Newf(dErrors.CodeDuplicateName, "a database named %q already exists", db.Name)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check database name")
	}

	if parent != nil {
		if _, err := s.databases.FindByID(ctx, *parent); err != nil {
			return nil, wrapStoreErr(err, "parent database")
		}
	}

	base := models.Slugify(db.Name)
	if base == "" {
		base = "database"
	}
	db.Slug = base
	for attempt := 2; ; attempt++ {
		err := s.databases.CreateIfSlugAvailable(ctx, db)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create database")
		}
		if attempt > maxSlugAttempts {
			return nil, dErrors.New(dErrors.CodeInternal, "could not derive a unique slug")
		}
		db.Slug = fmt.Sprintf("%s-%d", base, attempt)
	}

	s.auditor.Publish(ctx, audit.Event{
		Action:  audit.ActionDatabaseCreated,
		ActorID: creator.String(),
		Subject: db.ID.String(),
		Detail:  db.Slug,
	})
	return db, nil
}

// DefineField adds a field definition to a database. The field name
// must be unique within that database.
func (s *Service) DefineField(ctx context.Context, dbID domain.DatabaseID, name, label string, fieldType models.FieldType, opts FieldOptions) (*models.Field, error) {
	if _, err := s.databases.FindByID(ctx, dbID); err != nil {
		return nil, wrapStoreErr(err, "database")
	}

	field, err := models.NewField(domain.NewFieldID(), dbID, name, label, fieldType, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	field.Required = opts.Required
	field.Searchable = opts.Searchable
	field.Filterable = opts.Filterable
	field.Default = opts.Default
	field.Help = opts.Help
	field.Placeholder = opts.Placeholder
	field.Options = opts.Options
	field.Rule = opts.Rule

	existing, err := s.fields.ListByDatabase(ctx, dbID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list fields")
	}
	field.Position = len(existing)

	if err := s.fields.CreateIfNameAvailable(ctx, field); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Newf(dErrors.CodeDuplicateField, "field %q already exists in this database", field.Name)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create field")
	}

	s.auditor.Publish(ctx, audit.Event{
		Action:  audit.ActionFieldAdded,
		Subject: dbID.String(),
		Detail:  field.Name,
	})
	return field, nil
}

// FieldOptions carries the optional parts of a field definition.
type FieldOptions struct {
	Required    bool
	Searchable  bool
	Filterable  bool
	Default     string
	Help        string
	Placeholder string
	Options     []string
	Rule        models.ValidationRule
}

// GetDatabase fetches a database by ID.
func (s *Service) GetDatabase(ctx context.Context, id domain.DatabaseID) (*models.Database, error) {
	db, err := s.databases.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "database")
	}
	return db, nil
}

// GetDatabaseBySlug fetches a database by its immutable slug.
func (s *Service) GetDatabaseBySlug(ctx context.Context, slug string) (*models.Database, error) {
	db, err := s.databases.FindBySlug(ctx, slug)
	if err != nil {
		return nil, wrapStoreErr(err, "database")
	}
	return db, nil
}

// ListDatabases returns the databases the principal may access.
func (s *Service) ListDatabases(ctx context.Context, principal domain.Principal) ([]*models.Database, error) {
	all, err := s.databases.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list databases")
	}
	accessible := make([]*models.Database, 0, len(all))
	for _, db := range all {
		if db.HasAccess(principal) {
			accessible = append(accessible, db)
		}
	}
	return accessible, nil
}

// Fields returns a database's field definitions ordered by position.
func (s *Service) Fields(ctx context.Context, dbID domain.DatabaseID) ([]*models.Field, error) {
	fields, err := s.fields.ListByDatabase(ctx, dbID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list fields")
	}
	return fields, nil
}

// RequireAccess returns the database if the principal passes its
// access policy, CodePermissionDenied otherwise. Checked before any
// read or write on the database's records.
func (s *Service) RequireAccess(ctx context.Context, dbID domain.DatabaseID, principal domain.Principal) (*models.Database, error) {
	db, err := s.GetDatabase(ctx, dbID)
	if err != nil {
		return nil, err
	}
	if !db.HasAccess(principal) {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "you do not have access to this database")
	}
	return db, nil
}

// DeleteDatabase removes a database, cascading to its fields and
// entries. This is the only hard-delete path for entries.
func (s *Service) DeleteDatabase(ctx context.Context, dbID domain.DatabaseID, principal domain.Principal) error {
	db, err := s.RequireAccess(ctx, dbID, principal)
	if err != nil {
		return err
	}
	if s.purger != nil {
		if err := s.purger.PurgeDatabase(ctx, dbID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge entries")
		}
	}
	if err := s.fields.DeleteByDatabase(ctx, dbID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete fields")
	}
	if err := s.databases.Delete(ctx, dbID); err != nil {
		return wrapStoreErr(err, "database")
	}
	s.logger.InfoContext(ctx, "database deleted",
		"database_id", dbID.String(),
		"slug", db.Slug,
	)
	return nil
}

func wrapStoreErr(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", what)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
