package workspace

import (
	"strings"

	"github.com/benvon/smart-notes/internal/models"
)

// Filter returns the items for which any of fields contains query,
// ignoring case. An empty query matches everything.
func Filter[T any](items []T, query string, fields func(T) []string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]T(nil), items...)
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, f := range fields(item) {
			if strings.Contains(strings.ToLower(f), query) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// SearchNotes filters notes by title and content.
func SearchNotes(notes []models.Note, query string) []models.Note {
	return Filter(notes, query, func(n models.Note) []string {
		return []string{n.Title, n.Content}
	})
}

// SearchTasks filters tasks by name and note.
func SearchTasks(tasks []models.Task, query string) []models.Task {
	return Filter(tasks, query, func(t models.Task) []string {
		return []string{t.Name, t.Note}
	})
}
