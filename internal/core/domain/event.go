package domain

import "time"

// ChangeAction names the mutation a ChangeEvent records.
type ChangeAction string

const (
	ActionCreated       ChangeAction = "created"
	ActionUpdated       ChangeAction = "updated"
	ActionDeleted       ChangeAction = "deleted"
	ActionStatusChanged ChangeAction = "status_changed"
	ActionToggled       ChangeAction = "toggled"
	ActionRated         ChangeAction = "rated"
)

// ChangeEvent is emitted after a successful write to a resource collection.
type ChangeEvent struct {
	Resource   string       `json:"resource"`
	DocumentID string       `json:"document_id"`
	Action     ChangeAction `json:"action"`
	Actor      string       `json:"actor,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
	Data       Document     `json:"data,omitempty"`
}
