// Package service implements identity resolution: person links that
// aggregate entries and external person records, similarity-based
// link suggestions, and operator verification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"persondb/internal/audit"
	"persondb/internal/identity/models"
	"persondb/internal/platform/config"
	"persondb/internal/platform/metrics"
	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
	"persondb/pkg/platform/sentinel"
	"persondb/pkg/requestcontext"
	"persondb/pkg/textmatch"
)

// LinkStore persists person links. Execute runs validate-then-mutate
// while holding the link's lock.
type LinkStore interface {
	Create(ctx context.Context, link *models.PersonLink) error
	FindByID(ctx context.Context, id domain.PersonLinkID) (*models.PersonLink, error)
	List(ctx context.Context) ([]*models.PersonLink, error)
	FindByEntry(ctx context.Context, entryID domain.EntryID) ([]*models.PersonLink, error)
	FindByRef(ctx context.Context, ref models.SourceRef) ([]*models.PersonLink, error)
	Execute(ctx context.Context, id domain.PersonLinkID, validate func(*models.PersonLink) error, mutate func(*models.PersonLink)) (*models.PersonLink, error)
}

// Suggestion is one candidate link for an unlinked record, with the
// similarity confidence that produced it.
type Suggestion struct {
	Link       *models.PersonLink `json:"link"`
	Confidence float64            `json:"confidence"`
}

// Service is the identity-resolution engine.
type Service struct {
	links   LinkStore
	cfg     config.SearchConfig
	auditor audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New constructs the identity-resolution service.
func New(links LinkStore, cfg config.SearchConfig, auditor audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		links:   links,
		cfg:     cfg,
		auditor: auditor,
		metrics: m,
		logger:  logger,
	}
}

// GetLink fetches a person link by ID.
func (s *Service) GetLink(ctx context.Context, id domain.PersonLinkID) (*models.PersonLink, error) {
	link, err := s.links.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return link, nil
}

// LinksForEntry returns every link the entry belongs to.
func (s *Service) LinksForEntry(ctx context.Context, entryID domain.EntryID) ([]*models.PersonLink, error) {
	links, err := s.links.FindByEntry(ctx, entryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list person links")
	}
	return links, nil
}

// LinksForRef returns every link referencing the external record.
func (s *Service) LinksForRef(ctx context.Context, ref models.SourceRef) ([]*models.PersonLink, error) {
	links, err := s.links.FindByRef(ctx, ref)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list person links")
	}
	return links, nil
}

// LinkEntry appends the entry to the link's membership. Linking an
// already-linked entry is a no-op.
func (s *Service) LinkEntry(ctx context.Context, linkID domain.PersonLinkID, entryID domain.EntryID) (*models.PersonLink, error) {
	now := requestcontext.Now(ctx)
	link, err := s.links.Execute(ctx, linkID,
		func(*models.PersonLink) error { return nil },
		func(l *models.PersonLink) { l.AttachEntry(entryID, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return link, nil
}

// LinkRef appends an external record reference to the link; idempotent
// like LinkEntry.
func (s *Service) LinkRef(ctx context.Context, linkID domain.PersonLinkID, ref models.SourceRef) (*models.PersonLink, error) {
	now := requestcontext.Now(ctx)
	link, err := s.links.Execute(ctx, linkID,
		func(*models.PersonLink) error { return nil },
		func(l *models.PersonLink) { l.AttachRef(ref, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return link, nil
}

// SuggestLinks ranks existing links against a display name using the
// same similarity ratio the search engine uses. Candidates below the
// suggestion threshold are dropped; the rest come back highest first.
// This is advisory: nothing is linked here.
func (s *Service) SuggestLinks(ctx context.Context, displayName string) ([]Suggestion, error) {
	normalized := textmatch.Normalize(displayName)
	if normalized == "" {
		return nil, nil
	}
	links, err := s.links.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list person links")
	}

	var out []Suggestion
	for _, link := range links {
		ratio := textmatch.Ratio(normalized, link.NormalizedName)
		if ratio < s.cfg.SuggestThreshold {
			continue
		}
		out = append(out, Suggestion{Link: link, Confidence: ratio})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Link.ID.String() < out[j].Link.ID.String()
	})
	return out, nil
}

// ResolveEntry attaches an entry to the best matching link, or creates
// a fresh unverified link when nothing matches well enough. Automatic
// attachment only happens at or above the auto-link threshold, and
// never touches a verified link's membership; everything below that
// stays a suggestion for an operator to act on.
func (s *Service) ResolveEntry(ctx context.Context, entryID domain.EntryID, displayName string) (*models.PersonLink, error) {
	suggestions, err := s.SuggestLinks(ctx, displayName)
	if err != nil {
		return nil, err
	}
	for _, candidate := range suggestions {
		if candidate.Confidence < s.cfg.AutoLinkThreshold {
			break
		}
		if candidate.Link.Verified {
			continue
		}
		return s.LinkEntry(ctx, candidate.Link.ID, entryID)
	}
	return s.createLink(ctx, entryID, displayName)
}

func (s *Service) createLink(ctx context.Context, entryID domain.EntryID, displayName string) (*models.PersonLink, error) {
	now := requestcontext.Now(ctx)
	link := models.NewPersonLink(displayName, 1, now)
	link.AttachEntry(entryID, now)
	if err := s.links.Create(ctx, link); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create person link")
	}

	s.metrics.IncrementLinksCreated()
	s.auditor.Publish(ctx, audit.Event{
		Action:  audit.ActionPersonLinkCreated,
		ActorID: actorID(ctx),
		Subject: link.ID.String(),
		Detail:  entryID.String(),
	})
	return link, nil
}

// Verify marks a link as operator-confirmed. Verification is terminal:
// a verified link keeps its membership through later suggestion runs.
func (s *Service) Verify(ctx context.Context, linkID domain.PersonLinkID, verifier domain.UserID) (*models.PersonLink, error) {
	now := requestcontext.Now(ctx)
	link, err := s.links.Execute(ctx, linkID,
		func(l *models.PersonLink) error {
			if l.Verified {
				return dErrors.New(dErrors.CodeConflict, "person link is already verified")
			}
			return nil
		},
		func(l *models.PersonLink) { l.ApplyVerification(verifier, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	s.metrics.IncrementLinksVerified()
	s.auditor.Publish(ctx, audit.Event{
		Action:  audit.ActionPersonLinkVerified,
		ActorID: verifier.String(),
		Subject: link.ID.String(),
	})
	return link, nil
}

func actorID(ctx context.Context) string {
	if principal := requestcontext.Principal(ctx); !principal.UserID.IsZero() {
		return principal.UserID.String()
	}
	return ""
}

func wrapStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "person link not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
