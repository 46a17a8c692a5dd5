package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockNoteStore struct {
	listFunc   func(ctx context.Context) ([]models.Note, error)
	createFunc func(ctx context.Context, p models.NotePayload) (*models.Note, error)
	updateFunc func(ctx context.Context, id uuid.UUID, p models.NotePayload) (*models.Note, error)
	deleteFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockNoteStore) List(ctx context.Context) ([]models.Note, error) { return m.listFunc(ctx) }

func (m *mockNoteStore) Create(ctx context.Context, p models.NotePayload) (*models.Note, error) {
	return m.createFunc(ctx, p)
}

func (m *mockNoteStore) Update(ctx context.Context, id uuid.UUID, p models.NotePayload) (*models.Note, error) {
	return m.updateFunc(ctx, id, p)
}

func (m *mockNoteStore) Delete(ctx context.Context, id uuid.UUID) error { return m.deleteFunc(ctx, id) }

func noteIDs(notes []models.Note) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	return ids
}

func seeded(t *testing.T, store *mockNoteStore, notes ...models.Note) *Collection[models.Note, models.NotePayload] {
	t.Helper()
	store.listFunc = func(context.Context) ([]models.Note, error) { return notes, nil }
	col := NewCollection[models.Note, models.NotePayload]("note", store, nil)
	require.NoError(t, col.Refresh(context.Background()))
	return col
}

func TestCollection_Save(t *testing.T) {
	t.Parallel()

	existing := models.Note{ID: uuid.New(), Title: "Alpha", Content: "foo"}
	other := models.Note{ID: uuid.New(), Title: "Beta", Content: "bar"}
	newID := uuid.New()

	tests := []struct {
		name        string
		record      models.Note
		wantCreate  bool
		wantUpdate  bool
		wantIDs     []uuid.UUID
		wantContent string
	}{
		{
			name:        "persisted record is updated in place",
			record:      models.Note{ID: existing.ID, Title: "Alpha", Content: "edited"},
			wantUpdate:  true,
			wantIDs:     []uuid.UUID{existing.ID, other.ID},
			wantContent: "edited by server",
		},
		{
			name:        "draft is created and appended",
			record:      models.Note{Title: "Gamma", Content: "baz"},
			wantCreate:  true,
			wantIDs:     []uuid.UUID{existing.ID, other.ID, newID},
			wantContent: "baz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var created, updated bool
			store := &mockNoteStore{
				createFunc: func(_ context.Context, p models.NotePayload) (*models.Note, error) {
					created = true
					return &models.Note{ID: newID, Title: *p.Title, Content: *p.Content}, nil
				},
				updateFunc: func(_ context.Context, id uuid.UUID, p models.NotePayload) (*models.Note, error) {
					updated = true
					return &models.Note{ID: id, Title: *p.Title, Content: *p.Content + " by server"}, nil
				},
			}
			col := seeded(t, store, existing, other)

			saved, err := col.Save(context.Background(), tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreate, created)
			assert.Equal(t, tt.wantUpdate, updated)
			assert.Equal(t, tt.wantContent, saved.Content)
			assert.Equal(t, tt.wantIDs, noteIDs(col.Items()))

			got, ok := col.Find(saved.ID)
			require.True(t, ok)
			assert.Equal(t, saved, got, "the list holds the server's copy")
		})
	}
}

func TestCollection_SaveFailureLeavesListUntouched(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	existing := models.Note{ID: uuid.New(), Title: "Alpha", Content: "foo"}
	store := &mockNoteStore{
		listFunc: func(context.Context) ([]models.Note, error) { return []models.Note{existing}, nil },
		createFunc: func(context.Context, models.NotePayload) (*models.Note, error) {
			return nil, errors.New("Failed to create note. Content is required")
		},
		updateFunc: func(context.Context, uuid.UUID, models.NotePayload) (*models.Note, error) {
			return nil, errors.New("Failed to update note.")
		},
	}
	col := NewCollection[models.Note, models.NotePayload]("note", store, zap.New(core))
	require.NoError(t, col.Refresh(context.Background()))

	_, err := col.Save(context.Background(), models.Note{Title: "no content"})
	require.Error(t, err)
	assert.NotEmpty(t, err.Error())

	_, err = col.Save(context.Background(), models.Note{ID: existing.ID, Content: "changed"})
	require.Error(t, err)

	assert.Equal(t, []models.Note{existing}, col.Items())
	assert.Equal(t, 2, logs.FilterMessage("save_failed").Len())
}

func TestCollection_Delete(t *testing.T) {
	t.Parallel()

	a := models.Note{ID: uuid.New(), Content: "a"}
	b := models.Note{ID: uuid.New(), Content: "b"}
	c := models.Note{ID: uuid.New(), Content: "c"}

	tests := []struct {
		name        string
		id          uuid.UUID
		confirm     bool
		deleteErr   error
		wantDeleted bool
		wantErr     bool
		wantIDs     []uuid.UUID
	}{
		{name: "confirmed", id: b.ID, confirm: true, wantDeleted: true, wantIDs: []uuid.UUID{a.ID, c.ID}},
		{name: "declined", id: b.ID, confirm: false, wantIDs: []uuid.UUID{a.ID, b.ID, c.ID}},
		{name: "server error", id: b.ID, confirm: true, deleteErr: errors.New("Failed to delete note."), wantErr: true, wantIDs: []uuid.UUID{a.ID, b.ID, c.ID}},
		{name: "unsaved", id: uuid.Nil, confirm: true, wantErr: true, wantIDs: []uuid.UUID{a.ID, b.ID, c.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var deletedID uuid.UUID
			store := &mockNoteStore{
				deleteFunc: func(_ context.Context, id uuid.UUID) error {
					deletedID = id
					return tt.deleteErr
				},
			}
			col := seeded(t, store, a, b, c)

			asked := false
			deleted, err := col.Delete(context.Background(), tt.id, func() bool {
				asked = true
				return tt.confirm
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantDeleted, deleted)
			assert.Equal(t, tt.wantIDs, noteIDs(col.Items()))
			if tt.id != uuid.Nil {
				assert.True(t, asked)
			}
			if !tt.confirm {
				assert.Equal(t, uuid.Nil, deletedID, "store is not called without confirmation")
			}
		})
	}
}

func TestCollection_RefreshFailureKeepsList(t *testing.T) {
	t.Parallel()

	a := models.Note{ID: uuid.New(), Content: "a"}
	store := &mockNoteStore{}
	col := seeded(t, store, a)

	store.listFunc = func(context.Context) ([]models.Note, error) { return nil, errors.New("Failed to fetch notes.") }
	require.Error(t, col.Refresh(context.Background()))

	state := col.State()
	assert.True(t, state.Loaded)
	assert.False(t, state.Loading)
	assert.EqualError(t, state.Err, "Failed to fetch notes.")
	assert.Equal(t, []models.Note{a}, col.Items())
}

func TestCollection_DoesNotAliasStoreSlice(t *testing.T) {
	t.Parallel()

	shared := []models.Note{{ID: uuid.New(), Content: "a"}}
	store := &mockNoteStore{
		updateFunc: func(_ context.Context, id uuid.UUID, _ models.NotePayload) (*models.Note, error) {
			return &models.Note{ID: id, Content: "changed"}, nil
		},
	}
	col := seeded(t, store, shared...)
	store.listFunc = func(context.Context) ([]models.Note, error) { return shared, nil }

	_, err := col.Save(context.Background(), shared[0])
	require.NoError(t, err)
	assert.Equal(t, "a", shared[0].Content)
}
