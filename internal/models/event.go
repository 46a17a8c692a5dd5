package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType is the kind of mutation a ChangeEvent reports.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Entity names used in change events and list envelopes.
const (
	EntityNote    = "note"
	EntityTask    = "task"
	EntityProject = "project"
	EntityArea    = "area"
	EntityTag     = "tag"
)

// ChangeEvent is pushed to a user's event feed after a successful write.
type ChangeEvent struct {
	Type   ChangeType `json:"type"`
	Entity string     `json:"entity"`
	ID     uuid.UUID  `json:"id"`
	At     time.Time  `json:"at"`
}
