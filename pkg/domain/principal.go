package domain

// Principal is the authenticated caller as reported by the auth
// collaborator. The core never authenticates; it only consumes this.
type Principal struct {
	UserID    UserID
	Role      string
	Superuser bool
}

// SourceKind names a person-record source for search and identity
// resolution. External collaborators register their own kinds; the
// record store contributes SourceEntry.
type SourceKind string

const (
	SourceMember      SourceKind = "member"
	SourceConstituent SourceKind = "constituent"
	SourceEntry       SourceKind = "entry"
)
