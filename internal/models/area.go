package models

import (
	"time"

	"github.com/google/uuid"
)

// Area is a broad sphere of responsibility that projects are filed under.
type Area struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AreaPayload struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
}

func (a Area) RecordID() uuid.UUID { return a.ID }

func (a Area) IsPersisted() bool { return a.ID != uuid.Nil }

func (a Area) Payload() AreaPayload {
	return AreaPayload{Name: &a.Name, Description: &a.Description}
}
