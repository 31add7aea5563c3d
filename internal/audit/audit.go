// Package audit records who changed which documentary base, and when.
package audit

import "time"

// Action describes what was done.
type Action string

const (
	ActionReferenceAdded   Action = "reference_added"
	ActionReferenceDeleted Action = "reference_deleted"
)

// Anonymous is the actor recorded when authentication is disabled.
const Anonymous = "anonymous"

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	Action    Action    `json:"action"`
	Base      string    `json:"base"`
	Reference string    `json:"reference"`
	Summary   string    `json:"summary"`
	Detail    string    `json:"detail,omitempty"`
}
