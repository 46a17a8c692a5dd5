package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-notes/internal/client"
	"github.com/benvon/smart-notes/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrModalClosed is returned when saving a modal that is not open.
var ErrModalClosed = errors.New("modal is not open")

// Stores backs each collection of a Layout.
type Stores struct {
	Notes    Store[models.Note, models.NotePayload]
	Tasks    Store[models.Task, models.TaskPayload]
	Projects Store[models.Project, models.ProjectPayload]
	Areas    Store[models.Area, models.AreaPayload]
	Tags     Store[models.Tag, models.TagPayload]
}

// ClientStores returns unfiltered stores backed by c.
func ClientStores(c *client.Client) Stores {
	return Stores{
		Notes:    NoteStore(c, client.NoteFilter{}),
		Tasks:    TaskStore(c, client.TaskFilter{}),
		Projects: ProjectStore(c, client.ProjectFilter{}),
		Areas:    AreaStore(c),
		Tags:     TagStore(c),
	}
}

// Layout is the application-wide view state: one modal per record family,
// the record lists behind them and the note search query. Modal and search
// state is not synchronized; a Layout belongs to one UI loop.
type Layout struct {
	Notes    *Collection[models.Note, models.NotePayload]
	Tasks    *Collection[models.Task, models.TaskPayload]
	Projects *Collection[models.Project, models.ProjectPayload]
	Areas    *Collection[models.Area, models.AreaPayload]
	Tags     *Collection[models.Tag, models.TagPayload]

	NoteModal    Modal[models.Note]
	TaskModal    Modal[models.Task]
	ProjectModal Modal[models.Project]
	AreaModal    Modal[models.Area]
	TagModal     Modal[models.Tag]

	search string
	log    *zap.Logger
}

// NewLayout creates a layout over stores with every modal closed.
func NewLayout(stores Stores, log *zap.Logger) *Layout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Layout{
		Notes:    NewCollection(models.EntityNote, stores.Notes, log),
		Tasks:    NewCollection(models.EntityTask, stores.Tasks, log),
		Projects: NewCollection(models.EntityProject, stores.Projects, log),
		Areas:    NewCollection(models.EntityArea, stores.Areas, log),
		Tags:     NewCollection(models.EntityTag, stores.Tags, log),
		log:      log,
	}
}

// saveModal saves the modal's record through col and closes the modal,
// whether or not the save worked. Failures are logged by the collection.
func saveModal[T Entity[P], P any](ctx context.Context, m *Modal[T], col *Collection[T, P]) (T, error) {
	record, ok := m.Record()
	if !ok {
		var zero T
		return zero, ErrModalClosed
	}
	defer m.Close()
	return col.Save(ctx, record)
}

// SaveNote saves the note modal's record.
func (l *Layout) SaveNote(ctx context.Context) (models.Note, error) {
	return saveModal(ctx, &l.NoteModal, l.Notes)
}

// SaveTask saves the task modal's record.
func (l *Layout) SaveTask(ctx context.Context) (models.Task, error) {
	return saveModal(ctx, &l.TaskModal, l.Tasks)
}

// SaveProject saves the project modal's record.
func (l *Layout) SaveProject(ctx context.Context) (models.Project, error) {
	return saveModal(ctx, &l.ProjectModal, l.Projects)
}

// SaveArea saves the area modal's record.
func (l *Layout) SaveArea(ctx context.Context) (models.Area, error) {
	return saveModal(ctx, &l.AreaModal, l.Areas)
}

// SaveTag saves the tag modal's record.
func (l *Layout) SaveTag(ctx context.Context) (models.Tag, error) {
	return saveModal(ctx, &l.TagModal, l.Tags)
}

// SetSearch sets the note search query.
func (l *Layout) SetSearch(query string) { l.search = query }

// Search returns the note search query.
func (l *Layout) Search() string { return l.search }

// VisibleNotes returns the notes matching the search query, recomputed on
// every call.
func (l *Layout) VisibleNotes() []models.Note {
	return SearchNotes(l.Notes.Items(), l.search)
}

// RefreshAll reloads every collection concurrently and returns the first error.
func (l *Layout) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.Notes.Refresh(ctx) })
	g.Go(func() error { return l.Tasks.Refresh(ctx) })
	g.Go(func() error { return l.Projects.Refresh(ctx) })
	g.Go(func() error { return l.Areas.Refresh(ctx) })
	g.Go(func() error { return l.Tags.Refresh(ctx) })
	return g.Wait()
}

// HandleEvent refreshes the collections a server change event affects.
// Deleting or renaming a project, area or tag also changes the records that
// referenced it.
func (l *Layout) HandleEvent(ctx context.Context, ev models.ChangeEvent) error {
	var refresh []func(context.Context) error
	switch ev.Entity {
	case models.EntityNote:
		refresh = append(refresh, l.Notes.Refresh, l.Tags.Refresh)
	case models.EntityTask:
		refresh = append(refresh, l.Tasks.Refresh, l.Tags.Refresh)
	case models.EntityProject:
		refresh = append(refresh, l.Projects.Refresh, l.Notes.Refresh, l.Tasks.Refresh)
	case models.EntityArea:
		refresh = append(refresh, l.Areas.Refresh, l.Projects.Refresh)
	case models.EntityTag:
		refresh = append(refresh, l.Tags.Refresh, l.Notes.Refresh, l.Tasks.Refresh)
	default:
		l.log.Debug("unknown_event_entity", zap.String("entity", ev.Entity))
		return nil
	}
	var errs []error
	for _, r := range refresh {
		if err := r(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Watch follows c's change feed, refreshing on every event, until ctx is
// cancelled or the feed drops.
func (l *Layout) Watch(ctx context.Context, c *client.Client, onEvent func(models.ChangeEvent)) error {
	err := c.Subscribe(ctx, func(ev models.ChangeEvent) {
		if err := l.HandleEvent(ctx, ev); err != nil {
			l.log.Warn("event_refresh_failed", zap.String("entity", ev.Entity), zap.Error(err))
		}
		if onEvent != nil {
			onEvent(ev)
		}
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
