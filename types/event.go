package types

import "time"

// Contact lifecycle event types.
const (
	ContactCreated = "contact.created"
	ContactUpdated = "contact.updated"
	ContactDeleted = "contact.deleted"
)

// ContactEvent is published after a contact mutation commits.
type ContactEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Contact    Contact   `json:"contact"`
}
