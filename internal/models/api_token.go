package models

import (
	"time"

	"github.com/google/uuid"
)

// APIToken is a long-lived personal access token. Only the bcrypt hash of the
// secret is stored; Prefix is the public lookup key embedded in the token.
type APIToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Hash       string     `json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
