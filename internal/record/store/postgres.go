package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"persondb/internal/record/models"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

// Postgres persists entries with the attribute bag and identity as
// JSONB. Execute wraps validate+mutate in a transaction holding the
// row lock (FOR UPDATE), mirroring the memory store's semantics.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed entry store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the entries table.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS entries (
	id UUID PRIMARY KEY,
	database_id UUID NOT NULL,
	identity JSONB NOT NULL DEFAULT '{}',
	attributes JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	approver_id UUID,
	approved_at TIMESTAMPTZ,
	reject_reason TEXT NOT NULL DEFAULT '',
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	search_text TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS entries_database_idx ON entries (database_id, created_at);
CREATE INDEX IF NOT EXISTS entries_search_idx ON entries USING gin (search_text gin_trgm_ops);
`)
	if err != nil {
		// The trigram index needs pg_trgm; fall back to a plain btree
		// when the extension is unavailable.
		_, err = db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS entries (
	id UUID PRIMARY KEY,
	database_id UUID NOT NULL,
	identity JSONB NOT NULL DEFAULT '{}',
	attributes JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	approver_id UUID,
	approved_at TIMESTAMPTZ,
	reject_reason TEXT NOT NULL DEFAULT '',
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	search_text TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS entries_database_idx ON entries (database_id, created_at);
`)
	}
	return err
}

func (s *Postgres) Create(ctx context.Context, entry *models.Entry) error {
	identity, attrs, err := marshalEntry(entry)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO entries (id, database_id, identity, attributes, status, approver_id, approved_at, reject_reason, created_by, created_at, updated_at, search_text)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID.String(), entry.DatabaseID.String(), identity, attrs,
		string(entry.Status), nullableID(entry.ApproverID), entry.ApprovedAt,
		entry.RejectReason, entry.CreatedBy.String(),
		entry.CreatedAt, entry.UpdatedAt, entry.SearchText,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.EntryID) (*models.Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE id = $1`, id.String()))
}

func (s *Postgres) ListByDatabase(ctx context.Context, dbID domain.DatabaseID) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` WHERE database_id = $1 ORDER BY created_at`, dbID.String())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Execute loads the entry FOR UPDATE, runs validate then mutate, and
// writes the result back in the same transaction.
func (s *Postgres) Execute(ctx context.Context, id domain.EntryID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	entry, err := scanEntry(tx.QueryRowContext(ctx, selectEntry+` WHERE id = $1 FOR UPDATE`, id.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(entry); err != nil {
		return nil, err
	}
	mutate(entry)

	identity, attrs, err := marshalEntry(entry)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
UPDATE entries SET identity = $2, attributes = $3, status = $4, approver_id = $5, approved_at = $6, reject_reason = $7, updated_at = $8, search_text = $9
WHERE id = $1`,
		entry.ID.String(), identity, attrs, string(entry.Status),
		nullableID(entry.ApproverID), entry.ApprovedAt, entry.RejectReason,
		entry.UpdatedAt, entry.SearchText,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return entry, nil
}

// likeEscaper neutralizes LIKE metacharacters so a query containing
// "%" or "_" matches literally, like the memory store's contains check.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Postgres) ScanMatching(ctx context.Context, query string) ([]*models.Entry, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE search_text LIKE '%' || $1 || '%' ESCAPE '\' ORDER BY created_at`,
		likeEscaper.Replace(normalized))
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteByDatabase(ctx context.Context, dbID domain.DatabaseID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE database_id = $1`, dbID.String())
	return err
}

const selectEntry = `
SELECT id, database_id, identity, attributes, status, approver_id, approved_at, reject_reason, created_by, created_at, updated_at, search_text
FROM entries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		entry       models.Entry
		idRaw       string
		dbRaw       string
		identityRaw []byte
		attrsRaw    []byte
		statusRaw   string
		approverRaw sql.NullString
		approvedAt  sql.NullTime
		createdBy   string
	)
	err := row.Scan(&idRaw, &dbRaw, &identityRaw, &attrsRaw, &statusRaw,
		&approverRaw, &approvedAt, &entry.RejectReason,
		&createdBy, &entry.CreatedAt, &entry.UpdatedAt, &entry.SearchText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	if entry.ID, err = domain.ParseEntryID(idRaw); err != nil {
		return nil, err
	}
	if entry.DatabaseID, err = domain.ParseDatabaseID(dbRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(identityRaw, &entry.Identity); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	if err := json.Unmarshal(attrsRaw, &entry.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	entry.Status = models.EntryStatus(statusRaw)
	if approverRaw.Valid {
		approver, err := domain.ParseUserID(approverRaw.String)
		if err != nil {
			return nil, err
		}
		entry.ApproverID = &approver
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		entry.ApprovedAt = &t
	}
	if entry.CreatedBy, err = domain.ParseUserID(createdBy); err != nil {
		return nil, err
	}
	return &entry, nil
}

func marshalEntry(entry *models.Entry) (identity, attrs []byte, err error) {
	if identity, err = json.Marshal(entry.Identity); err != nil {
		return nil, nil, fmt.Errorf("marshal identity: %w", err)
	}
	if entry.Attributes == nil {
		attrs = []byte("{}")
	} else if attrs, err = json.Marshal(entry.Attributes); err != nil {
		return nil, nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return identity, attrs, nil
}

func nullableID(id *domain.UserID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
