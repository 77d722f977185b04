package external

import (
	"context"
	"strings"
	"sync"

	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
	"persondb/pkg/textmatch"
)

// Member is a parliament member record as supplied by the legislative
// records collaborator.
type Member struct {
	MemberID   string `json:"member_id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	EmailAddr  string `json:"email,omitempty"`
	PhoneNo    string `json:"phone,omitempty"`
	// MemberNo is the house-assigned member number.
	MemberNo string `json:"member_no,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (m Member) Kind() domain.SourceKind { return domain.SourceMember }
func (m Member) ID() string              { return m.MemberID }
func (m Member) Email() string           { return m.EmailAddr }
func (m Member) Phone() string           { return m.PhoneNo }
func (m Member) SecondaryID() string     { return m.MemberNo }
func (m Member) Label() string           { return m.Status }

func (m Member) FirstLast() (string, string) { return m.FirstName, m.LastName }

func (m Member) DisplayName() string {
	return joinNonEmpty(m.FirstName, m.MiddleName, m.LastName)
}

// MemberDirectory is an in-memory snapshot of the member roster. The
// collaborator refreshes it wholesale; reads take a shared lock.
type MemberDirectory struct {
	mu      sync.RWMutex
	members []Member
}

// NewMemberDirectory seeds a directory with the given roster.
func NewMemberDirectory(members []Member) *MemberDirectory {
	return &MemberDirectory{members: members}
}

// Replace swaps the roster snapshot.
func (d *MemberDirectory) Replace(members []Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = members
}

func (d *MemberDirectory) Kind() domain.SourceKind { return domain.SourceMember }

func (d *MemberDirectory) Scan(_ context.Context, query string) ([]Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Person
	for _, m := range d.members {
		if matchesPerson(m, query) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (d *MemberDirectory) Get(_ context.Context, id string) (Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.members {
		if m.MemberID == id {
			return m, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// matchesPerson is the shared candidate filter: case-insensitive
// substring containment over name, email, phone, and secondary ID.
// Name parts match in both directions so a multi-word query still
// surfaces partial-name candidates for the engine to score down.
func matchesPerson(p Person, query string) bool {
	if query == "" {
		return false
	}
	first, last := p.FirstLast()
	return textmatch.ContainsFold(p.DisplayName(), query) ||
		textmatch.ContainsFold(first, query) ||
		textmatch.ContainsFold(last, query) ||
		textmatch.ContainsFold(query, first) ||
		textmatch.ContainsFold(query, last) ||
		textmatch.ContainsFold(p.Email(), query) ||
		textmatch.ContainsFold(p.Phone(), query) ||
		textmatch.ContainsFold(p.SecondaryID(), query)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
