package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"persondb/internal/schema/models"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresDatabaseStore persists databases in PostgreSQL. Slug
// uniqueness rides on the unique index, so concurrent creates resolve
// the same way the in-memory store's lock does.
type PostgresDatabaseStore struct {
	db *sql.DB
}

// NewPostgresDatabaseStore constructs a PostgreSQL-backed database store.
func NewPostgresDatabaseStore(db *sql.DB) *PostgresDatabaseStore {
	return &PostgresDatabaseStore{db: db}
}

// Migrate creates the schema-registry tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS databases (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	parent_id UUID,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	public BOOLEAN NOT NULL DEFAULT FALSE,
	self_register BOOLEAN NOT NULL DEFAULT FALSE,
	policy JSONB NOT NULL DEFAULT '{}',
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS fields (
	id UUID PRIMARY KEY,
	database_id UUID NOT NULL REFERENCES databases(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	label TEXT NOT NULL,
	type TEXT NOT NULL,
	required BOOLEAN NOT NULL DEFAULT FALSE,
	searchable BOOLEAN NOT NULL DEFAULT FALSE,
	filterable BOOLEAN NOT NULL DEFAULT FALSE,
	default_value TEXT NOT NULL DEFAULT '',
	help TEXT NOT NULL DEFAULT '',
	placeholder TEXT NOT NULL DEFAULT '',
	options JSONB NOT NULL DEFAULT '[]',
	rule JSONB NOT NULL DEFAULT '{}',
	position INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS fields_db_name_idx ON fields (database_id, lower(name));
`)
	return err
}

func (s *PostgresDatabaseStore) CreateIfSlugAvailable(ctx context.Context, db *models.Database) error {
	policy, err := json.Marshal(db.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	var parent any
	if db.ParentID != nil {
		parent = db.ParentID.String()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO databases (id, name, slug, type, parent_id, active, public, self_register, policy, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		db.ID.String(), db.Name, db.Slug, string(db.Type), parent,
		db.Active, db.Public, db.SelfRegister, policy,
		db.CreatedBy.String(), db.CreatedAt, db.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert database: %w", err)
	}
	return nil
}

func (s *PostgresDatabaseStore) FindByID(ctx context.Context, id domain.DatabaseID) (*models.Database, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectDatabase+` WHERE id = $1`, id.String()))
}

func (s *PostgresDatabaseStore) FindBySlug(ctx context.Context, slug string) (*models.Database, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectDatabase+` WHERE slug = $1`, slug))
}

func (s *PostgresDatabaseStore) FindByName(ctx context.Context, name string) (*models.Database, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectDatabase+` WHERE lower(name) = lower($1)`, name))
}

func (s *PostgresDatabaseStore) List(ctx context.Context) ([]*models.Database, error) {
	rows, err := s.db.QueryContext(ctx, selectDatabase+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var out []*models.Database
	for rows.Next() {
		db, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, db)
	}
	return out, rows.Err()
}

func (s *PostgresDatabaseStore) Delete(ctx context.Context, id domain.DatabaseID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM databases WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectDatabase = `
SELECT id, name, slug, type, parent_id, active, public, self_register, policy, created_by, created_at, updated_at
FROM databases`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresDatabaseStore) scanOne(row rowScanner) (*models.Database, error) {
	var (
		db        models.Database
		idRaw     string
		typeRaw   string
		parentRaw sql.NullString
		policyRaw []byte
		createdBy string
	)
	err := row.Scan(&idRaw, &db.Name, &db.Slug, &typeRaw, &parentRaw,
		&db.Active, &db.Public, &db.SelfRegister, &policyRaw,
		&createdBy, &db.CreatedAt, &db.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan database: %w", err)
	}
	if db.ID, err = domain.ParseDatabaseID(idRaw); err != nil {
		return nil, err
	}
	db.Type = models.DatabaseType(typeRaw)
	if parentRaw.Valid {
		parentID, err := domain.ParseDatabaseID(parentRaw.String)
		if err != nil {
			return nil, err
		}
		db.ParentID = &parentID
	}
	if err := json.Unmarshal(policyRaw, &db.Policy); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}
	creator, err := domain.ParseUserID(createdBy)
	if err != nil {
		return nil, err
	}
	db.CreatedBy = creator
	return &db, nil
}

// PostgresFieldStore persists field definitions in PostgreSQL.
type PostgresFieldStore struct {
	db *sql.DB
}

// NewPostgresFieldStore constructs a PostgreSQL-backed field store.
func NewPostgresFieldStore(db *sql.DB) *PostgresFieldStore {
	return &PostgresFieldStore{db: db}
}

func (s *PostgresFieldStore) CreateIfNameAvailable(ctx context.Context, field *models.Field) error {
	options, err := json.Marshal(field.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	rule, err := json.Marshal(field.Rule)
	if err != nil {
		return fmt.Errorf("marshal rule: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO fields (id, database_id, name, label, type, required, searchable, filterable, default_value, help, placeholder, options, rule, position, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		field.ID.String(), field.DatabaseID.String(), field.Name, field.Label, string(field.Type),
		field.Required, field.Searchable, field.Filterable,
		field.Default, field.Help, field.Placeholder,
		options, rule, field.Position, field.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert field: %w", err)
	}
	return nil
}

func (s *PostgresFieldStore) ListByDatabase(ctx context.Context, dbID domain.DatabaseID) ([]*models.Field, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, database_id, name, label, type, required, searchable, filterable, default_value, help, placeholder, options, rule, position, created_at
FROM fields WHERE database_id = $1 ORDER BY position`, dbID.String())
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	var out []*models.Field
	for rows.Next() {
		var (
			f          models.Field
			idRaw      string
			dbRaw      string
			typeRaw    string
			optionsRaw []byte
			ruleRaw    []byte
		)
		if err := rows.Scan(&idRaw, &dbRaw, &f.Name, &f.Label, &typeRaw,
			&f.Required, &f.Searchable, &f.Filterable,
			&f.Default, &f.Help, &f.Placeholder,
			&optionsRaw, &ruleRaw, &f.Position, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fieldID, err := domain.ParseFieldID(idRaw)
		if err != nil {
			return nil, err
		}
		f.ID = fieldID
		if f.DatabaseID, err = domain.ParseDatabaseID(dbRaw); err != nil {
			return nil, err
		}
		f.Type = models.FieldType(typeRaw)
		if err := json.Unmarshal(optionsRaw, &f.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		if err := json.Unmarshal(ruleRaw, &f.Rule); err != nil {
			return nil, fmt.Errorf("unmarshal rule: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *PostgresFieldStore) DeleteByDatabase(ctx context.Context, dbID domain.DatabaseID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM fields WHERE database_id = $1`, dbID.String())
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
