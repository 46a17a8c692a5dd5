package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups tasks and notes, optionally inside an area
type Project struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Active       bool          `json:"active"`
	PinToSidebar bool          `json:"pin_to_sidebar"`
	AreaID       uuid.NullUUID `json:"area_id"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ProjectPayload is the create/update body for a project.
type ProjectPayload struct {
	Name         *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	Active       *bool      `json:"active,omitempty"`
	PinToSidebar *bool      `json:"pin_to_sidebar,omitempty"`
	AreaID       *uuid.UUID `json:"area_id,omitempty"`
	ClearArea    bool       `json:"clear_area,omitempty"`
}

func (p Project) RecordID() uuid.UUID { return p.ID }

func (p Project) IsPersisted() bool { return p.ID != uuid.Nil }

// Payload converts the project into a full write body.
func (p Project) Payload() ProjectPayload {
	out := ProjectPayload{
		Name:         &p.Name,
		Description:  &p.Description,
		Active:       &p.Active,
		PinToSidebar: &p.PinToSidebar,
	}
	if p.AreaID.Valid {
		id := p.AreaID.UUID
		out.AreaID = &id
	} else if p.IsPersisted() {
		out.ClearArea = true
	}
	return out
}
