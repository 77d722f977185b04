// Package service implements the record store: entry creation and
// mutation with schema validation, the synchronously-maintained search
// projection, and column introspection for consumers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"persondb/internal/audit"
	"persondb/internal/platform/metrics"
	"persondb/internal/record/models"
	schemamodels "persondb/internal/schema/models"
	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
	"persondb/pkg/platform/sentinel"
	"persondb/pkg/requestcontext"
	"persondb/pkg/textmatch"
)

// EntryStore persists entries. Execute runs a validate-then-mutate
// callback pair while holding the entry's lock (mutex or FOR UPDATE),
// which is all the locking this package needs: there is no cross-entry
// invariant.
type EntryStore interface {
	Create(ctx context.Context, entry *models.Entry) error
	FindByID(ctx context.Context, id domain.EntryID) (*models.Entry, error)
	ListByDatabase(ctx context.Context, dbID domain.DatabaseID) ([]*models.Entry, error)
	Execute(ctx context.Context, id domain.EntryID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error)
	DeleteByDatabase(ctx context.Context, dbID domain.DatabaseID) error
	// ScanMatching returns entries whose search projection or raw
	// attribute values contain the query, case-insensitively.
	ScanMatching(ctx context.Context, query string) ([]*models.Entry, error)
}

// FieldProvider exposes the schema registry's field definitions.
type FieldProvider interface {
	Fields(ctx context.Context, dbID domain.DatabaseID) ([]*schemamodels.Field, error)
}

// AccountDirectory resolves linked accounts to display names. The
// auth collaborator owns accounts; the core only reads names.
type AccountDirectory interface {
	DisplayName(ctx context.Context, id domain.UserID) (string, bool)
}

// Service is the record store.
type Service struct {
	entries  EntryStore
	fields   FieldProvider
	accounts AccountDirectory
	auditor  audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs the record store service. accounts may be nil when no
// account directory collaborator is wired.
func New(entries EntryStore, fields FieldProvider, accounts AccountDirectory, auditor audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		entries:  entries,
		fields:   fields,
		accounts: accounts,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
	}
}

// CreateEntry validates attributes against the database's declared
// fields and persists a new entry with its search projection already
// computed. Unknown attribute names are dropped; the first validation
// failure rejects the whole write.
func (s *Service) CreateEntry(ctx context.Context, dbID domain.DatabaseID, identity models.Identity, attrs models.Attributes, status models.EntryStatus, creator domain.UserID) (*models.Entry, error) {
	declared, err := s.fields.Fields(ctx, dbID)
	if err != nil {
		return nil, err
	}

	kept := make(models.Attributes, len(attrs))
	for _, field := range declared {
		value, ok := attrs[field.Name]
		if !ok {
			continue
		}
		if err := field.Validate(value.Text()); err != nil {
			return nil, err
		}
		kept[field.Name] = value
	}

	now := requestcontext.Now(ctx)
	entry := &models.Entry{
		ID:         domain.NewEntryID(),
		DatabaseID: dbID,
		Identity:   identity,
		Attributes: kept,
		Status:     status,
		CreatedBy:  creator,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	entry.RecomputeSearchText()

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create entry")
	}

	s.metrics.IncrementEntriesCreated()
	s.auditor.Publish(ctx, audit.Event{
		Action:  audit.ActionEntryCreated,
		ActorID: creator.String(),
		Subject: entry.ID.String(),
		Detail:  dbID.String(),
	})
	return entry, nil
}

// UpdateField re-validates one field, updates the attribute bag, and
// recomputes the whole search projection in the same save. Calling it
// twice with the same value is idempotent apart from UpdatedAt.
func (s *Service) UpdateField(ctx context.Context, entryID domain.EntryID, fieldName, raw string) (*models.Entry, error) {
	current, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, wrapStoreErr(err, "entry")
	}

	declared, err := s.fields.Fields(ctx, current.DatabaseID)
	if err != nil {
		return nil, err
	}
	var field *schemamodels.Field
	for _, f := range declared {
		if f.Name == fieldName {
			field = f
			break
		}
	}
	if field == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "field %q is not declared on this database", fieldName)
	}
	if err := field.Validate(raw); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	entry, err := s.entries.Execute(ctx, entryID,
		func(*models.Entry) error { return nil },
		func(e *models.Entry) {
			if e.Attributes == nil {
				e.Attributes = make(models.Attributes, 1)
			}
			e.Attributes[fieldName] = models.String(raw)
			e.UpdatedAt = now
			e.RecomputeSearchText()
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "entry")
	}
	return entry, nil
}

// GetEntry fetches an entry by ID.
func (s *Service) GetEntry(ctx context.Context, id domain.EntryID) (*models.Entry, error) {
	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "entry")
	}
	return entry, nil
}

// ListEntries returns all entries of a database.
func (s *Service) ListEntries(ctx context.Context, dbID domain.DatabaseID) ([]*models.Entry, error) {
	entries, err := s.entries.ListByDatabase(ctx, dbID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list entries")
	}
	return entries, nil
}

// Approve transitions an entry to approved.
func (s *Service) Approve(ctx context.Context, entryID domain.EntryID, approver domain.UserID) (*models.Entry, error) {
	now := requestcontext.Now(ctx)
	entry, err := s.entries.Execute(ctx, entryID,
		func(e *models.Entry) error { return e.CanApprove() },
		func(e *models.Entry) { e.ApplyApproval(approver, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "entry")
	}
	return entry, nil
}

// Reject transitions an entry to rejected with a reason.
func (s *Service) Reject(ctx context.Context, entryID domain.EntryID, approver domain.UserID, reason string) (*models.Entry, error) {
	now := requestcontext.Now(ctx)
	entry, err := s.entries.Execute(ctx, entryID,
		func(e *models.Entry) error { return e.CanReject() },
		func(e *models.Entry) { e.ApplyRejection(approver, reason, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "entry")
	}
	return entry, nil
}

// Archive transitions an entry to archived.
func (s *Service) Archive(ctx context.Context, entryID domain.EntryID) (*models.Entry, error) {
	now := requestcontext.Now(ctx)
	entry, err := s.entries.Execute(ctx, entryID,
		func(*models.Entry) error { return nil },
		func(e *models.Entry) { e.ApplyArchive(now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "entry")
	}
	return entry, nil
}

// ScanMatching returns entries matching a free-text query; the search
// engine's record-store source calls this.
func (s *Service) ScanMatching(ctx context.Context, query string) ([]*models.Entry, error) {
	entries, err := s.entries.ScanMatching(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan entries")
	}
	return entries, nil
}

// PurgeDatabase hard-deletes all entries of a database. Only the
// schema registry's cascading delete calls this.
func (s *Service) PurgeDatabase(ctx context.Context, dbID domain.DatabaseID) error {
	return s.entries.DeleteByDatabase(ctx, dbID)
}

var (
	firstNameKeyRe = regexp.MustCompile(`^(first([ _-]?name)?|fname|given([ _-]?name)?)$`)
	lastNameKeyRe  = regexp.MustCompile(`^(last([ _-]?name)?|lname|surname|family([ _-]?name)?)$`)
	fullNameKeyRe  = regexp.MustCompile(`^(name|full([ _-]?name)?)$`)
)

// DisplayName resolves the best human label for an entry: linked
// account name, then guest name fields, then name-like attribute
// keys, then a synthetic fallback.
func (s *Service) DisplayName(ctx context.Context, entry *models.Entry) string {
	if entry.Identity.AccountID != nil && s.accounts != nil {
		if name, ok := s.accounts.DisplayName(ctx, *entry.Identity.AccountID); ok && name != "" {
			return name
		}
	}
	if name := entry.Identity.FullName(); name != "" {
		return name
	}
	if name := nameFromAttributes(entry.Attributes); name != "" {
		return name
	}
	return fmt.Sprintf("Entry #%.8s", entry.ID.String())
}

// nameFromAttributes walks keys in sorted order so the chosen value is
// stable when several keys match the same pattern.
func nameFromAttributes(attrs models.Attributes) string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var first, last, full string
	for _, key := range keys {
		text := strings.TrimSpace(attrs[key].Text())
		if text == "" {
			continue
		}
		normalized := textmatch.NormalizeColumn(key)
		switch {
		case firstNameKeyRe.MatchString(normalized):
			first = text
		case lastNameKeyRe.MatchString(normalized):
			last = text
		case fullNameKeyRe.MatchString(normalized):
			full = text
		}
	}
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	return full
}

// AllColumnNames returns the union of attribute keys ever written to
// the database's entries, in first-seen order.
func (s *Service) AllColumnNames(ctx context.Context, dbID domain.DatabaseID) ([]string, error) {
	entries, err := s.ListEntries(ctx, dbID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, entry := range entries {
		for key := range entry.Attributes {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				out = append(out, key)
			}
		}
	}
	return out, nil
}

// ActiveColumnNames returns only columns with at least one non-empty
// value, so consumers can skip rendering sparse columns.
func (s *Service) ActiveColumnNames(ctx context.Context, dbID domain.DatabaseID) ([]string, error) {
	entries, err := s.ListEntries(ctx, dbID)
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{})
	var out []string
	for _, entry := range entries {
		for key, value := range entry.Attributes {
			if value.IsEmpty() {
				continue
			}
			if _, ok := active[key]; !ok {
				active[key] = struct{}{}
				out = append(out, key)
			}
		}
	}
	return out, nil
}

// FindColumnMatches returns known columns whose normalized form
// equals or contains the target's. Falls back to the target itself so
// callers always get a usable lookup key.
func (s *Service) FindColumnMatches(ctx context.Context, dbID domain.DatabaseID, target string) ([]string, error) {
	columns, err := s.AllColumnNames(ctx, dbID)
	if err != nil {
		return nil, err
	}
	wanted := textmatch.NormalizeColumn(target)
	var matches []string
	for _, col := range columns {
		if col == target {
			matches = append(matches, col)
			continue
		}
		normalized := textmatch.NormalizeColumn(col)
		if normalized == wanted || strings.Contains(normalized, wanted) || strings.Contains(wanted, normalized) {
			matches = append(matches, col)
		}
	}
	if len(matches) == 0 {
		return []string{target}, nil
	}
	return matches, nil
}

func wrapStoreErr(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", what)
	}
	// Execute's validate callback already returns classified errors.
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
