package models

import (
	"time"

	"github.com/google/uuid"
)

// Note is a free-form text record, optionally filed under a project and tagged.
type Note struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	ProjectID uuid.NullUUID `json:"project_id"`
	Tags      []Tag         `json:"tags"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NotePayload is the create/update body for a note. Nil fields are left
// untouched on update; an empty, non-nil Tags removes every tag.
type NotePayload struct {
	Title        *string    `json:"title,omitempty" validate:"omitempty,max=255"`
	Content      *string    `json:"content,omitempty" validate:"omitempty,max=100000"`
	ProjectID    *uuid.UUID `json:"project_id,omitempty"`
	ClearProject bool       `json:"clear_project,omitempty"`
	Tags         []string   `json:"tags" validate:"omitempty,max=50,dive,max=64"`
}

// RecordID returns the note's identifier, uuid.Nil for a draft.
func (n Note) RecordID() uuid.UUID { return n.ID }

// IsPersisted reports whether the note has been assigned an identifier by the server.
func (n Note) IsPersisted() bool { return n.ID != uuid.Nil }

// Payload converts the note into a full write body.
func (n Note) Payload() NotePayload {
	p := NotePayload{
		Title:   &n.Title,
		Content: &n.Content,
		Tags:    append([]string{}, TagNames(n.Tags)...),
	}
	if n.ProjectID.Valid {
		id := n.ProjectID.UUID
		p.ProjectID = &id
	} else if n.IsPersisted() {
		p.ClearProject = true
	}
	return p
}
