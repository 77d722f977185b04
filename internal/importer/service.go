package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"persondb/internal/audit"
	identitymodels "persondb/internal/identity/models"
	"persondb/internal/platform/config"
	"persondb/internal/platform/metrics"
	recordmodels "persondb/internal/record/models"
	schemamodels "persondb/internal/schema/models"
	schemaservice "persondb/internal/schema/service"
	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
	"persondb/pkg/textmatch"
)

// EntryCreator is the record-store surface the pipeline writes through.
type EntryCreator interface {
	CreateEntry(ctx context.Context, dbID domain.DatabaseID, identity recordmodels.Identity, attrs recordmodels.Attributes, status recordmodels.EntryStatus, creator domain.UserID) (*recordmodels.Entry, error)
	DisplayName(ctx context.Context, entry *recordmodels.Entry) string
}

// LinkResolver attaches created entries to person links.
type LinkResolver interface {
	ResolveEntry(ctx context.Context, entryID domain.EntryID, displayName string) (*identitymodels.PersonLink, error)
}

// RowError records one failed row in a commit report. Row numbers are
// 1-indexed data rows; the header row is not counted.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// Report summarizes one committed batch.
type Report struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Errors     []RowError       `json:"errors,omitempty"`
	CreatedIDs []domain.EntryID `json:"created_ids,omitempty"`
}

// Service is the import pipeline.
type Service struct {
	entries  EntryCreator
	resolver LinkResolver
	fields   FieldProvider
	cfg      config.ImportConfig
	auditor  audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs the import pipeline. resolver may be nil when
// identity resolution is not wired; created entries are then left
// unlinked.
func New(entries EntryCreator, resolver LinkResolver, fields FieldProvider, cfg config.ImportConfig, auditor audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		entries:  entries,
		resolver: resolver,
		fields:   fields,
		cfg:      cfg,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
	}
}

// Commit writes a parsed batch into the record store. Rows are
// processed sequentially so row numbers in the report match file
// order; a failing row is recorded and the batch continues.
func (s *Service) Commit(ctx context.Context, dbID domain.DatabaseID, rows []Row, mappings map[string]Mapping, creator domain.UserID) (*Report, error) {
	if s.cfg.MaxRows > 0 && len(rows) > s.cfg.MaxRows {
		return nil, dErrors.Newf(dErrors.CodeValidation, "batch has %d rows, limit is %d", len(rows), s.cfg.MaxRows)
	}
	mappings, err := s.prepareMappings(ctx, dbID, mappings)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(rows)}
	for i, row := range rows {
		rowNumber := i + 1
		if err := s.commitRow(ctx, dbID, row, mappings, creator, report); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, RowError{Row: rowNumber, Err: dErrors.MessageOf(err)})
			s.metrics.IncrementImportRows("failed", 1)
			continue
		}
		report.Successful++
		s.metrics.IncrementImportRows("ok", 1)
	}

	s.auditor.Publish(ctx, audit.Event{
		Action:  audit.ActionEntriesImported,
		ActorID: creator.String(),
		Subject: dbID.String(),
		Detail:  fmt.Sprintf("total=%d ok=%d failed=%d", report.Total, report.Successful, report.Failed),
	})
	return report, nil
}

func (s *Service) commitRow(ctx context.Context, dbID domain.DatabaseID, row Row, mappings map[string]Mapping, creator domain.UserID, report *Report) error {
	identity, attrs := resolveRow(row, mappings)
	if identity.IsEmpty() && len(attrs) == 0 {
		// Fallback pass: the operator may have skipped explicit mapping;
		// run the heuristics directly against the raw headers.
		identity, attrs = resolveRow(row, autoDetect(row.Columns))
	}
	if identity.IsEmpty() && len(attrs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no valid data")
	}

	entry, err := s.entries.CreateEntry(ctx, dbID, identity, attrs, recordmodels.StatusSubmitted, creator)
	if err != nil {
		return err
	}
	report.CreatedIDs = append(report.CreatedIDs, entry.ID)

	if s.resolver != nil {
		if _, err := s.resolver.ResolveEntry(ctx, entry.ID, s.entries.DisplayName(ctx, entry)); err != nil {
			// The entry itself landed; a resolution failure must not fail
			// the row.
			s.logger.WarnContext(ctx, "identity resolution failed for imported entry",
				"entry_id", entry.ID.String(),
				"error", err,
			)
		}
	}
	return nil
}

// prepareMappings declares a text field for every new_field column and
// rewrites the mapping to the declared name, so committed values pass
// the record store's declared-field filter instead of being dropped. A
// column whose name already normalizes to a declared field reuses that
// field.
func (s *Service) prepareMappings(ctx context.Context, dbID domain.DatabaseID, mappings map[string]Mapping) (map[string]Mapping, error) {
	var newColumns []string
	for column, mapping := range mappings {
		if mapping.Type == MappingNewField {
			newColumns = append(newColumns, column)
		}
	}
	if len(newColumns) == 0 {
		return mappings, nil
	}
	sort.Strings(newColumns)

	declared, err := s.fields.Fields(ctx, dbID)
	if err != nil {
		return nil, err
	}
	byNormalized := make(map[string]string, len(declared))
	for _, field := range declared {
		byNormalized[textmatch.NormalizeColumn(field.Name)] = field.Name
	}

	out := make(map[string]Mapping, len(mappings))
	for column, mapping := range mappings {
		out[column] = mapping
	}
	for _, column := range newColumns {
		mapping := out[column]
		name := mapping.Field
		if name == "" {
			name = column
		}
		if existing, ok := byNormalized[textmatch.NormalizeColumn(name)]; ok {
			mapping.Field = existing
			out[column] = mapping
			continue
		}
		field, err := s.fields.DefineField(ctx, dbID, name, name, schemamodels.FieldText, schemaservice.FieldOptions{})
		if err != nil {
			return nil, err
		}
		byNormalized[textmatch.NormalizeColumn(field.Name)] = field.Name
		mapping.Field = field.Name
		out[column] = mapping
	}
	return out, nil
}

// resolveRow splits a row's cells into identity fields and the
// attribute bag according to the mapping specification.
func resolveRow(row Row, mappings map[string]Mapping) (recordmodels.Identity, recordmodels.Attributes) {
	var identity recordmodels.Identity
	attrs := make(recordmodels.Attributes)

	for _, column := range row.Columns {
		mapping, ok := mappings[column]
		if !ok {
			continue
		}
		value := strings.TrimSpace(row.Get(column))
		if value == "" {
			continue
		}
		switch mapping.Type {
		case MappingStandard:
			applyIdentity(&identity, mapping.Field, value, mapping.ParseHint)
		case MappingExistingField, MappingNewField:
			key := mapping.Field
			if key == "" {
				key = column
			}
			attrs[key] = recordmodels.String(value)
		}
	}
	return identity, attrs
}

func applyIdentity(identity *recordmodels.Identity, target, value, parseHint string) {
	switch target {
	case TargetFullName:
		parsed := ParseFullNameHint(value, parseHint)
		setIfEmpty(&identity.FirstName, parsed.First)
		setIfEmpty(&identity.MiddleName, parsed.Middle)
		setIfEmpty(&identity.LastName, parsed.Last)
	case TargetFirstName:
		identity.FirstName = value
	case TargetMiddleName:
		identity.MiddleName = value
	case TargetLastName:
		identity.LastName = value
	case TargetEmail:
		identity.Email = value
	case TargetPhone:
		identity.Phone = value
	}
}

// setIfEmpty keeps a discrete name column authoritative over a parsed
// compound cell when both are mapped.
func setIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// autoDetect builds a mapping from the heuristic rule table alone,
// covering files committed without an explicit mapping step.
func autoDetect(columns []string) map[string]Mapping {
	out := make(map[string]Mapping, len(columns))
	for _, column := range columns {
		suggestion, ok := matchRules(column)
		if !ok {
			continue
		}
		out[column] = Mapping{
			Type:      MappingStandard,
			Field:     suggestion.Target,
			ParseHint: suggestion.ParseHint,
		}
	}
	return out
}
