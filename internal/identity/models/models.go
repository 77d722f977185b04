// Package models defines the identity-resolution records: person
// links that group entries and external person records believed to
// represent the same real-world person.
package models

import (
	"slices"
	"time"

	"persondb/pkg/domain"
	"persondb/pkg/textmatch"
)

// SourceRef points at one external person record by source kind and
// source-local ID.
type SourceRef struct {
	Kind domain.SourceKind `json:"kind"`
	ID   string            `json:"id"`
}

// PersonLink aggregates records from multiple sources under one
// real-world person.
//
// Invariants:
//   - a link may reference records from several sources but represents
//     exactly one person
//   - Confidence < 1 implies unverified unless Verified is set
//   - verified links are terminal; suggestion runs never change their
//     membership
type PersonLink struct {
	ID             domain.PersonLinkID `json:"id"`
	DisplayName    string              `json:"display_name"`
	NormalizedName string              `json:"normalized_name"`
	Confidence     float64             `json:"confidence"`
	Verified       bool                `json:"verified"`
	VerifiedBy     *domain.UserID      `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time          `json:"verified_at,omitempty"`
	Refs           []SourceRef         `json:"refs,omitempty"`
	EntryIDs       []domain.EntryID    `json:"entry_ids,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NewPersonLink creates an unverified link for a display name. A brand
// new link is fully confident in itself.
func NewPersonLink(displayName string, confidence float64, now time.Time) *PersonLink {
	return &PersonLink{
		ID:             domain.NewPersonLinkID(),
		DisplayName:    displayName,
		NormalizedName: textmatch.Normalize(displayName),
		Confidence:     confidence,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasEntry reports whether the entry is already a member.
func (l *PersonLink) HasEntry(id domain.EntryID) bool {
	return slices.Contains(l.EntryIDs, id)
}

// AttachEntry appends the entry to the membership. Attaching an
// already-linked entry is a no-op; the returned bool reports whether
// the membership changed.
func (l *PersonLink) AttachEntry(id domain.EntryID, now time.Time) bool {
	if l.HasEntry(id) {
		return false
	}
	l.EntryIDs = append(l.EntryIDs, id)
	l.UpdatedAt = now
	return true
}

// HasRef reports whether the external record is already a member.
func (l *PersonLink) HasRef(ref SourceRef) bool {
	return slices.Contains(l.Refs, ref)
}

// AttachRef appends an external record reference; idempotent.
func (l *PersonLink) AttachRef(ref SourceRef, now time.Time) bool {
	if l.HasRef(ref) {
		return false
	}
	l.Refs = append(l.Refs, ref)
	l.UpdatedAt = now
	return true
}

// ApplyVerification marks the link verified. Verification is terminal
// and pins confidence at 1.
func (l *PersonLink) ApplyVerification(verifier domain.UserID, now time.Time) {
	l.Verified = true
	l.VerifiedBy = &verifier
	l.VerifiedAt = &now
	l.Confidence = 1
	l.UpdatedAt = now
}
