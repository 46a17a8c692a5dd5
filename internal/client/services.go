package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// endpoints describes one entity's REST surface.
type endpoints struct {
	singular string // "project"
	plural   string // "projects"
	// invalidates lists the cached endpoints a successful write makes stale.
	invalidates []string
}

func (e endpoints) listPath() string { return "/api/" + e.plural }

func (e endpoints) itemPath(id uuid.UUID) string {
	if id == uuid.Nil {
		return "/api/" + e.singular
	}
	return "/api/" + e.singular + "/" + id.String()
}

var (
	notesEndpoints    = endpoints{singular: models.EntityNote, plural: "notes", invalidates: []string{"/api/notes", tagsPath}}
	tasksEndpoints    = endpoints{singular: models.EntityTask, plural: "tasks", invalidates: []string{"/api/tasks", tagsPath}}
	projectsEndpoints = endpoints{singular: models.EntityProject, plural: "projects", invalidates: []string{"/api/projects", "/api/notes", "/api/tasks"}}
	areasEndpoints    = endpoints{singular: models.EntityArea, plural: "areas", invalidates: []string{"/api/areas", "/api/projects"}}
	tagsEndpoints     = endpoints{singular: models.EntityTag, plural: "tags", invalidates: []string{tagsPath, "/api/notes", "/api/tasks"}}
)

// endpointsFor maps a change event entity to its endpoints.
func endpointsFor(entity string) (endpoints, bool) {
	switch entity {
	case models.EntityNote:
		return notesEndpoints, true
	case models.EntityTask:
		return tasksEndpoints, true
	case models.EntityProject:
		return projectsEndpoints, true
	case models.EntityArea:
		return areasEndpoints, true
	case models.EntityTag:
		return tagsEndpoints, true
	}
	return endpoints{}, false
}

// service implements the calls every entity shares. T is the record and P
// its write payload.
type service[T any, P any] struct {
	c  *Client
	ep endpoints
}

func (s service[T, P]) list(ctx context.Context, query url.Values) ([]T, error) {
	raw, err := s.c.do(ctx, request{
		method:  http.MethodGet,
		path:    s.ep.listPath(),
		query:   query,
		failure: fmt.Sprintf("Failed to fetch %s.", s.ep.plural),
	})
	if err != nil {
		return nil, err
	}
	return decodeList[T](raw, s.ep.plural)
}

// Get fetches one record by id.
func (s service[T, P]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	raw, err := s.c.do(ctx, request{
		method:  http.MethodGet,
		path:    s.ep.itemPath(id),
		failure: fmt.Sprintf("Failed to fetch %s details.", s.ep.singular),
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord[T](raw, s.ep.singular)
}

// Create stores a new record and returns it as the server saved it.
func (s service[T, P]) Create(ctx context.Context, payload P) (*T, error) {
	raw, err := s.c.do(ctx, request{
		method:  http.MethodPost,
		path:    s.ep.itemPath(uuid.Nil),
		body:    payload,
		failure: fmt.Sprintf("Failed to create %s.", s.ep.singular),
	})
	if err != nil {
		return nil, err
	}
	s.c.cache.Invalidate(s.ep.invalidates...)
	return decodeRecord[T](raw, s.ep.singular)
}

// Update applies payload to the record and returns the updated record.
// Only the fields set in payload are changed.
func (s service[T, P]) Update(ctx context.Context, id uuid.UUID, payload P) (*T, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("cannot update %s without an id", s.ep.singular)
	}
	raw, err := s.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    s.ep.itemPath(id),
		body:    payload,
		failure: fmt.Sprintf("Failed to update %s.", s.ep.singular),
	})
	if err != nil {
		return nil, err
	}
	s.c.cache.Invalidate(s.ep.invalidates...)
	return decodeRecord[T](raw, s.ep.singular)
}

// Delete removes the record.
func (s service[T, P]) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("cannot delete %s without an id", s.ep.singular)
	}
	_, err := s.c.do(ctx, request{
		method:  http.MethodDelete,
		path:    s.ep.itemPath(id),
		failure: fmt.Sprintf("Failed to delete %s.", s.ep.singular),
	})
	if err != nil {
		return err
	}
	s.c.cache.Invalidate(s.ep.invalidates...)
	return nil
}

func decodeRecord[T any](raw json.RawMessage, name string) (*T, error) {
	if raw == nil {
		return nil, fmt.Errorf("empty %s response", name)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return &out, nil
}

func setUUID(q url.Values, key string, id *uuid.UUID) {
	if id != nil && *id != uuid.Nil {
		q.Set(key, id.String())
	}
}

// NoteFilter narrows Notes.List.
type NoteFilter struct {
	Query     string // substring of title or content, matched by the server
	Tag       string
	ProjectID *uuid.UUID
}

// Values encodes the filter as query parameters.
func (f NoteFilter) Values() url.Values {
	q := url.Values{}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	setUUID(q, "project_id", f.ProjectID)
	return q
}

// NotesService calls the note endpoints.
type NotesService struct {
	service[models.Note, models.NotePayload]
}

// List returns the caller's notes matching f.
func (s *NotesService) List(ctx context.Context, f NoteFilter) ([]models.Note, error) {
	return s.list(ctx, f.Values())
}

// TaskFilter narrows Tasks.List.
type TaskFilter struct {
	Type      models.TaskView
	Status    models.TaskStatus
	Tag       string
	ProjectID *uuid.UUID
}

// Values encodes the filter as query parameters.
func (f TaskFilter) Values() url.Values {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	setUUID(q, "project_id", f.ProjectID)
	return q
}

// TasksService calls the task endpoints.
type TasksService struct {
	service[models.Task, models.TaskPayload]
}

// List returns the caller's tasks matching f.
func (s *TasksService) List(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	return s.list(ctx, f.Values())
}

// ProjectFilter narrows Projects.List. Active is "all", "true" or "false";
// empty means all.
type ProjectFilter struct {
	Active string
	AreaID *uuid.UUID
}

// Values encodes the filter as query parameters. "all" is not sent.
func (f ProjectFilter) Values() url.Values {
	q := url.Values{}
	if f.Active != "" && f.Active != "all" {
		q.Set("active", f.Active)
	}
	setUUID(q, "area_id", f.AreaID)
	return q
}

// ProjectsService calls the project endpoints.
type ProjectsService struct {
	service[models.Project, models.ProjectPayload]
}

// List returns the caller's projects matching f.
func (s *ProjectsService) List(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	return s.list(ctx, f.Values())
}

// AreasService calls the area endpoints.
type AreasService struct {
	service[models.Area, models.AreaPayload]
}

// List returns all of the caller's areas.
func (s *AreasService) List(ctx context.Context) ([]models.Area, error) {
	return s.list(ctx, nil)
}

const (
	tagsPath          = "/api/tags"
	tagStatisticsPath = "/api/tags/statistics"
)

// TagsService calls the tag endpoints.
type TagsService struct {
	service[models.Tag, models.TagPayload]
}

// List returns all of the caller's tags.
func (s *TagsService) List(ctx context.Context) ([]models.Tag, error) {
	return s.list(ctx, nil)
}

// Statistics returns the worker-computed per-tag usage counts.
func (s *TagsService) Statistics(ctx context.Context) (*models.TagStatistics, error) {
	raw, err := s.c.do(ctx, request{
		method:  http.MethodGet,
		path:    tagStatisticsPath,
		failure: "Failed to fetch tag statistics.",
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord[models.TagStatistics](raw, "tag statistics")
}
