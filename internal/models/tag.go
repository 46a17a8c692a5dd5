package models

import (
	"strings"

	"github.com/google/uuid"
)

// Tag is a user-scoped label attached to notes and tasks.
type Tag struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id,omitempty"`
	Name   string    `json:"name"`
}

type TagPayload struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
}

func (t Tag) RecordID() uuid.UUID { return t.ID }

func (t Tag) IsPersisted() bool { return t.ID != uuid.Nil }

func (t Tag) Payload() TagPayload {
	return TagPayload{Name: &t.Name}
}

// TagNames returns the names of tags in order.
func TagNames(tags []Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

// NormalizeTagNames trims whitespace, drops empty names and removes
// duplicates (case-insensitively), keeping the first spelling seen.
func NormalizeTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
