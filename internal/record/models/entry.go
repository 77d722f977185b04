package models

import (
	"sort"
	"strings"
	"time"

	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
)

// EntryStatus is the workflow state of an entry.
type EntryStatus string

const (
	StatusDraft     EntryStatus = "draft"
	StatusSubmitted EntryStatus = "submitted"
	StatusApproved  EntryStatus = "approved"
	StatusRejected  EntryStatus = "rejected"
	StatusArchived  EntryStatus = "archived"
)

// Identity is the structured part of an entry: either a linked
// account or guest name/contact fields. Both may be partially
// populated.
type Identity struct {
	AccountID  *domain.UserID `json:"account_id,omitempty"`
	FirstName  string         `json:"first_name,omitempty"`
	MiddleName string         `json:"middle_name,omitempty"`
	LastName   string         `json:"last_name,omitempty"`
	Email      string         `json:"email,omitempty"`
	Phone      string         `json:"phone,omitempty"`
}

// IsEmpty reports whether the identity carries no usable data.
func (i Identity) IsEmpty() bool {
	return i.AccountID == nil &&
		strings.TrimSpace(i.FirstName) == "" &&
		strings.TrimSpace(i.MiddleName) == "" &&
		strings.TrimSpace(i.LastName) == "" &&
		strings.TrimSpace(i.Email) == "" &&
		strings.TrimSpace(i.Phone) == ""
}

// FullName joins the populated name parts.
func (i Identity) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.FirstName, i.MiddleName, i.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Entry is one record in a database: identity plus the open attribute
// bag, a workflow status, and the derived search projection.
//
// Invariants:
//   - Attributes only holds field names declared on the owning database
//   - SearchText is recomputed in the same save as any identity or
//     attribute change (no stale index)
//   - Entries are never hard-deleted except by cascading database
//     deletion
type Entry struct {
	ID           domain.EntryID    `json:"id"`
	DatabaseID   domain.DatabaseID `json:"database_id"`
	Identity     Identity          `json:"identity"`
	Attributes   Attributes        `json:"attributes"`
	Status       EntryStatus       `json:"status"`
	ApproverID   *domain.UserID    `json:"approver_id,omitempty"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty"`
	RejectReason string            `json:"reject_reason,omitempty"`
	CreatedBy    domain.UserID     `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	SearchText   string            `json:"search_text"`
}

// RecomputeSearchText rebuilds the search projection from the current
// identity fields, attribute keys, and attribute values: lower-cased
// and space-joined. Called on every save, never lazily.
func (e *Entry) RecomputeSearchText() {
	parts := make([]string, 0, 5+2*len(e.Attributes))
	for _, p := range []string{e.Identity.FirstName, e.Identity.MiddleName, e.Identity.LastName, e.Identity.Email, e.Identity.Phone} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	// Deterministic key order keeps the projection stable across saves.
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k)
		if text := strings.TrimSpace(e.Attributes[k].Text()); text != "" {
			parts = append(parts, text)
		}
	}
	e.SearchText = strings.ToLower(strings.Join(parts, " "))
}

// CanApprove checks the approve transition.
func (e *Entry) CanApprove() error {
	if e.Status == StatusApproved {
		return dErrors.New(dErrors.CodeConflict, "entry is already approved")
	}
	if e.Status == StatusArchived {
		return dErrors.New(dErrors.CodeConflict, "archived entries cannot be approved")
	}
	return nil
}

// ApplyApproval transitions the entry to approved.
func (e *Entry) ApplyApproval(approver domain.UserID, now time.Time) {
	e.Status = StatusApproved
	e.ApproverID = &approver
	e.ApprovedAt = &now
	e.RejectReason = ""
	e.UpdatedAt = now
}

// CanReject checks the reject transition.
func (e *Entry) CanReject() error {
	if e.Status == StatusRejected {
		return dErrors.New(dErrors.CodeConflict, "entry is already rejected")
	}
	if e.Status == StatusArchived {
		return dErrors.New(dErrors.CodeConflict, "archived entries cannot be rejected")
	}
	return nil
}

// ApplyRejection transitions the entry to rejected with a reason.
func (e *Entry) ApplyRejection(approver domain.UserID, reason string, now time.Time) {
	e.Status = StatusRejected
	e.ApproverID = &approver
	e.RejectReason = reason
	e.UpdatedAt = now
}

// ApplyArchive transitions the entry to archived. Any state may be
// archived; archiving is how entries leave circulation without a
// hard delete.
func (e *Entry) ApplyArchive(now time.Time) {
	e.Status = StatusArchived
	e.UpdatedAt = now
}
