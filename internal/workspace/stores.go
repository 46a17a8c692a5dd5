package workspace

import (
	"context"

	"github.com/benvon/smart-notes/internal/client"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// writer is the write half every client entity service has.
type writer[T any, P any] interface {
	Create(ctx context.Context, payload P) (*T, error)
	Update(ctx context.Context, id uuid.UUID, payload P) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// serviceStore adapts a client service, with its list call bound to a
// filter, to Store.
type serviceStore[T any, P any] struct {
	writer[T, P]
	list func(ctx context.Context) ([]T, error)
}

func (s serviceStore[T, P]) List(ctx context.Context) ([]T, error) { return s.list(ctx) }

// NoteStore lists notes matching f.
func NoteStore(c *client.Client, f client.NoteFilter) Store[models.Note, models.NotePayload] {
	return serviceStore[models.Note, models.NotePayload]{
		writer: c.Notes,
		list:   func(ctx context.Context) ([]models.Note, error) { return c.Notes.List(ctx, f) },
	}
}

// TaskStore lists tasks matching f.
func TaskStore(c *client.Client, f client.TaskFilter) Store[models.Task, models.TaskPayload] {
	return serviceStore[models.Task, models.TaskPayload]{
		writer: c.Tasks,
		list:   func(ctx context.Context) ([]models.Task, error) { return c.Tasks.List(ctx, f) },
	}
}

// ProjectStore lists projects matching f.
func ProjectStore(c *client.Client, f client.ProjectFilter) Store[models.Project, models.ProjectPayload] {
	return serviceStore[models.Project, models.ProjectPayload]{
		writer: c.Projects,
		list:   func(ctx context.Context) ([]models.Project, error) { return c.Projects.List(ctx, f) },
	}
}

// AreaStore lists all areas.
func AreaStore(c *client.Client) Store[models.Area, models.AreaPayload] {
	return serviceStore[models.Area, models.AreaPayload]{writer: c.Areas, list: c.Areas.List}
}

// TagStore lists tags through the client cache.
func TagStore(c *client.Client) Store[models.Tag, models.TagPayload] {
	return serviceStore[models.Tag, models.TagPayload]{writer: c.Tags, list: c.TagsResource().Tags}
}
