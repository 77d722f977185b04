// Package person assembles the unified person view: the primary
// record from whichever source owns it, plus every linked entry and
// person link known to identity resolution.
package person

import (
	"context"
	"log/slog"
	"time"

	"persondb/internal/external"
	identitymodels "persondb/internal/identity/models"
	identityservice "persondb/internal/identity/service"
	recordmodels "persondb/internal/record/models"
	recordservice "persondb/internal/record/service"
	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
)

// PrimaryInfo is the source-agnostic projection of the viewed record,
// built through the person capability interface.
type PrimaryInfo struct {
	Kind        domain.SourceKind `json:"kind"`
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	SecondaryID string            `json:"secondary_id,omitempty"`
	Label       string            `json:"label,omitempty"`
}

// EntrySummary is one linked database entry in the view.
type EntrySummary struct {
	ID          domain.EntryID           `json:"id"`
	DatabaseID  domain.DatabaseID        `json:"database_id"`
	DisplayName string                   `json:"display_name"`
	Status      recordmodels.EntryStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
}

// View is the unified person view returned to collaborators.
type View struct {
	Primary       PrimaryInfo                  `json:"primary"`
	LinkedEntries []EntrySummary               `json:"linked_entries,omitempty"`
	PersonLinks   []*identitymodels.PersonLink `json:"person_links,omitempty"`
}

// Service dispatches person-view requests on source kind to the
// owning directory and enriches the result with identity-resolution
// state.
type Service struct {
	directories map[domain.SourceKind]external.Directory
	records     *recordservice.Service
	identity    *identityservice.Service
	logger      *slog.Logger
}

// New constructs the view assembler over the registered directories.
func New(directories []external.Directory, records *recordservice.Service, identity *identityservice.Service, logger *slog.Logger) *Service {
	byKind := make(map[domain.SourceKind]external.Directory, len(directories))
	for _, dir := range directories {
		byKind[dir.Kind()] = dir
	}
	return &Service{
		directories: byKind,
		records:     records,
		identity:    identity,
		logger:      logger,
	}
}

// UnifiedView fetches the record from its owning source and assembles
// the cross-source view around it.
func (s *Service) UnifiedView(ctx context.Context, kind domain.SourceKind, id string) (*View, error) {
	dir, ok := s.directories[kind]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown source kind %q", kind)
	}
	record, err := dir.Get(ctx, id)
	if err != nil {
		return nil, wrapLookupErr(err)
	}

	first, last := record.FirstLast()
	view := &View{
		Primary: PrimaryInfo{
			Kind:        record.Kind(),
			ID:          record.ID(),
			DisplayName: record.DisplayName(),
			FirstName:   first,
			LastName:    last,
			Email:       record.Email(),
			Phone:       record.Phone(),
			SecondaryID: record.SecondaryID(),
			Label:       record.Label(),
		},
	}

	links, err := s.linksFor(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	view.PersonLinks = links
	view.LinkedEntries = s.collectEntries(ctx, kind, id, links)
	return view, nil
}

func (s *Service) linksFor(ctx context.Context, kind domain.SourceKind, id string) ([]*identitymodels.PersonLink, error) {
	if kind == domain.SourceEntry {
		entryID, err := domain.ParseEntryID(id)
		if err != nil {
			return nil, err
		}
		return s.identity.LinksForEntry(ctx, entryID)
	}
	return s.identity.LinksForRef(ctx, identitymodels.SourceRef{Kind: kind, ID: id})
}

// collectEntries resolves the entry memberships of every link into
// summaries, skipping the viewed entry itself. A dangling entry ID is
// logged and skipped, not fatal to the view.
func (s *Service) collectEntries(ctx context.Context, kind domain.SourceKind, id string, links []*identitymodels.PersonLink) []EntrySummary {
	seen := make(map[domain.EntryID]struct{})
	var out []EntrySummary
	for _, link := range links {
		for _, entryID := range link.EntryIDs {
			if kind == domain.SourceEntry && entryID.String() == id {
				continue
			}
			if _, dup := seen[entryID]; dup {
				continue
			}
			seen[entryID] = struct{}{}

			entry, err := s.records.GetEntry(ctx, entryID)
			if err != nil {
				s.logger.WarnContext(ctx, "linked entry lookup failed",
					"entry_id", entryID.String(),
					"error", err,
				)
				continue
			}
			out = append(out, EntrySummary{
				ID:          entry.ID,
				DatabaseID:  entry.DatabaseID,
				DisplayName: s.records.DisplayName(ctx, entry),
				Status:      entry.Status,
				CreatedAt:   entry.CreatedAt,
			})
		}
	}
	return out
}

func wrapLookupErr(err error) error {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeNotFound, "person record not found")
}
