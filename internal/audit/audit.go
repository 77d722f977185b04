// Package audit publishes domain events for compliance and
// operational visibility. Emission is fire-and-forget from the
// caller's perspective; a broken sink must never fail the operation
// that produced the event.
package audit

import (
	"context"
	"time"
)

// Action names an audited domain event.
type Action string

const (
	ActionDatabaseCreated    Action = "database_created"
	ActionFieldAdded         Action = "field_added"
	ActionEntryCreated       Action = "entry_created"
	ActionEntriesImported    Action = "entries_imported"
	ActionPersonLinkCreated  Action = "person_link_created"
	ActionPersonLinkVerified Action = "person_link_verified"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Action    Action    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the sink interface services emit into.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Discard is a Publisher that drops everything; used in unit tests.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
