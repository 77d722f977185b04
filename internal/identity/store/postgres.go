package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"persondb/internal/identity/models"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
)

// Postgres persists person links with the membership sets as JSONB.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed person-link store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the person_links table.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS person_links (
	id UUID PRIMARY KEY,
	display_name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	verified_by UUID,
	verified_at TIMESTAMPTZ,
	refs JSONB NOT NULL DEFAULT '[]',
	entry_ids JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS person_links_normalized_idx ON person_links (normalized_name);
`)
	return err
}

func (s *Postgres) Create(ctx context.Context, link *models.PersonLink) error {
	refs, entryIDs, err := marshalMembership(link)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO person_links (id, display_name, normalized_name, confidence, verified, verified_by, verified_at, refs, entry_ids, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		link.ID.String(), link.DisplayName, link.NormalizedName, link.Confidence,
		link.Verified, nullableID(link.VerifiedBy), link.VerifiedAt,
		refs, entryIDs, link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert person link: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PersonLinkID) (*models.PersonLink, error) {
	return scanLink(s.db.QueryRowContext(ctx, selectLink+` WHERE id = $1`, id.String()))
}

func (s *Postgres) List(ctx context.Context) ([]*models.PersonLink, error) {
	return s.queryLinks(ctx, selectLink+` ORDER BY created_at`)
}

func (s *Postgres) FindByEntry(ctx context.Context, entryID domain.EntryID) ([]*models.PersonLink, error) {
	return s.queryLinks(ctx,
		selectLink+` WHERE entry_ids @> to_jsonb($1::text) ORDER BY created_at`, entryID.String())
}

func (s *Postgres) FindByRef(ctx context.Context, ref models.SourceRef) ([]*models.PersonLink, error) {
	return s.queryLinks(ctx,
		selectLink+` WHERE refs @> jsonb_build_array(jsonb_build_object('kind', $1::text, 'id', $2::text)) ORDER BY created_at`,
		string(ref.Kind), ref.ID)
}

func (s *Postgres) queryLinks(ctx context.Context, query string, args ...any) ([]*models.PersonLink, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query person links: %w", err)
	}
	defer rows.Close()

	var out []*models.PersonLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// Execute loads the link FOR UPDATE, runs validate then mutate, and
// writes the result back in the same transaction.
func (s *Postgres) Execute(ctx context.Context, id domain.PersonLinkID, validate func(*models.PersonLink) error, mutate func(*models.PersonLink)) (*models.PersonLink, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	link, err := scanLink(tx.QueryRowContext(ctx, selectLink+` WHERE id = $1 FOR UPDATE`, id.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(link); err != nil {
		return nil, err
	}
	mutate(link)

	refs, entryIDs, err := marshalMembership(link)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
UPDATE person_links SET display_name = $2, normalized_name = $3, confidence = $4, verified = $5, verified_by = $6, verified_at = $7, refs = $8, entry_ids = $9, updated_at = $10
WHERE id = $1`,
		link.ID.String(), link.DisplayName, link.NormalizedName, link.Confidence,
		link.Verified, nullableID(link.VerifiedBy), link.VerifiedAt,
		refs, entryIDs, link.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update person link: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return link, nil
}

const selectLink = `
SELECT id, display_name, normalized_name, confidence, verified, verified_by, verified_at, refs, entry_ids, created_at, updated_at
FROM person_links`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*models.PersonLink, error) {
	var (
		link        models.PersonLink
		idRaw       string
		verifiedBy  sql.NullString
		verifiedAt  sql.NullTime
		refsRaw     []byte
		entryIDsRaw []byte
	)
	err := row.Scan(&idRaw, &link.DisplayName, &link.NormalizedName, &link.Confidence,
		&link.Verified, &verifiedBy, &verifiedAt, &refsRaw, &entryIDsRaw,
		&link.CreatedAt, &link.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person link: %w", err)
	}
	if link.ID, err = domain.ParsePersonLinkID(idRaw); err != nil {
		return nil, err
	}
	if verifiedBy.Valid {
		verifier, err := domain.ParseUserID(verifiedBy.String)
		if err != nil {
			return nil, err
		}
		link.VerifiedBy = &verifier
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		link.VerifiedAt = &t
	}
	if err := json.Unmarshal(refsRaw, &link.Refs); err != nil {
		return nil, fmt.Errorf("unmarshal refs: %w", err)
	}
	var entryIDs []string
	if err := json.Unmarshal(entryIDsRaw, &entryIDs); err != nil {
		return nil, fmt.Errorf("unmarshal entry ids: %w", err)
	}
	for _, raw := range entryIDs {
		entryID, err := domain.ParseEntryID(raw)
		if err != nil {
			return nil, err
		}
		link.EntryIDs = append(link.EntryIDs, entryID)
	}
	return &link, nil
}

func marshalMembership(link *models.PersonLink) (refs, entryIDs []byte, err error) {
	if link.Refs == nil {
		refs = []byte("[]")
	} else if refs, err = json.Marshal(link.Refs); err != nil {
		return nil, nil, fmt.Errorf("marshal refs: %w", err)
	}
	ids := make([]string, 0, len(link.EntryIDs))
	for _, id := range link.EntryIDs {
		ids = append(ids, id.String())
	}
	if entryIDs, err = json.Marshal(ids); err != nil {
		return nil, nil, fmt.Errorf("marshal entry ids: %w", err)
	}
	return refs, entryIDs, nil
}

func nullableID(id *domain.UserID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
