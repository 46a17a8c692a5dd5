package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagChangeRecorder struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (r *tagChangeRecorder) handle(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID)
	return nil
}

func (r *tagChangeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestNoteRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	project := testutil.CreateProject(t, db, user.ID, "Garden")
	repo := database.NewNoteRepository(db)
	ctx := context.Background()

	note := &models.Note{
		UserID:    user.ID,
		Title:     "Seeds",
		Content:   "Order tomatoes",
		ProjectID: uuid.NullUUID{UUID: project.ID, Valid: true},
	}
	require.NoError(t, repo.Create(ctx, note, []string{" spring ", "garden", "Spring"}))
	require.NotEqual(t, uuid.Nil, note.ID)
	assert.False(t, note.CreatedAt.IsZero())
	assert.Equal(t, []string{"spring", "garden"}, models.TagNames(note.Tags))

	got, err := repo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seeds", got.Title)
	assert.Equal(t, "Order tomatoes", got.Content)
	assert.Equal(t, user.ID, got.UserID)
	assert.True(t, got.ProjectID.Valid)
	assert.Equal(t, project.ID, got.ProjectID.UUID)
	assert.ElementsMatch(t, []string{"spring", "garden"}, models.TagNames(got.Tags))
}

func TestNoteRepository_GetByID_NotFound(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := database.NewNoteRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestNoteRepository_CreateRejectsUnknownProject(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	repo := database.NewNoteRepository(db)

	note := &models.Note{
		UserID:    user.ID,
		Content:   "orphan",
		ProjectID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
	}
	err := repo.Create(context.Background(), note, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrInvalidReference), "got %v", err)
}

func TestNoteRepository_ListFilters(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	other := testutil.CreateUser(t, db)
	project := testutil.CreateProject(t, db, user.ID, "Work")
	repo := database.NewNoteRepository(db)
	ctx := context.Background()

	alpha := &models.Note{UserID: user.ID, Title: "Alpha", Content: "foo"}
	beta := &models.Note{UserID: user.ID, Title: "Beta", Content: "bar", ProjectID: uuid.NullUUID{UUID: project.ID, Valid: true}}
	foreign := &models.Note{UserID: other.ID, Title: "Alpha too", Content: "foo"}
	require.NoError(t, repo.Create(ctx, alpha, []string{"greek"}))
	require.NoError(t, repo.Create(ctx, beta, []string{"Greek", "second"}))
	require.NoError(t, repo.Create(ctx, foreign, nil))

	all, err := repo.List(ctx, user.ID, database.NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byQuery, err := repo.List(ctx, user.ID, database.NoteFilter{Query: "ALP"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, alpha.ID, byQuery[0].ID)

	byContent, err := repo.List(ctx, user.ID, database.NoteFilter{Query: "BAR"})
	require.NoError(t, err)
	require.Len(t, byContent, 1)
	assert.Equal(t, beta.ID, byContent[0].ID)

	wildcard, err := repo.List(ctx, user.ID, database.NoteFilter{Query: "%"})
	require.NoError(t, err)
	assert.Empty(t, wildcard)

	byTag, err := repo.List(ctx, user.ID, database.NoteFilter{Tag: "second"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, beta.ID, byTag[0].ID)
	assert.ElementsMatch(t, []string{"greek", "second"}, models.TagNames(byTag[0].Tags))

	byProject, err := repo.List(ctx, user.ID, database.NoteFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, beta.ID, byProject[0].ID)
}

func TestNoteRepository_ListQueryFoldsNonASCII(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	repo := database.NewNoteRepository(db)
	ctx := context.Background()

	emile := &models.Note{UserID: user.ID, Title: "Émile", Content: "Motor ÖL"}
	plain := &models.Note{UserID: user.ID, Title: "Foo", Content: "plain"}
	require.NoError(t, repo.Create(ctx, emile, nil))
	require.NoError(t, repo.Create(ctx, plain, nil))

	tests := []struct {
		name  string
		query string
		want  uuid.UUID
	}{
		{name: "lower case accent", query: "émile", want: emile.ID},
		{name: "upper case accent", query: "ÉMILE", want: emile.ID},
		{name: "content umlaut", query: "öl", want: emile.ID},
		{name: "ascii", query: "FOO", want: plain.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, user.ID, database.NoteFilter{Query: tt.query})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].ID)
		})
	}
}

func TestNoteRepository_UpdateNotifiesOnlyWhenTagsChange(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	repo := database.NewNoteRepository(db)
	recorder := &tagChangeRecorder{}
	repo.SetTagChangeHandler(recorder.handle)
	ctx := context.Background()

	note := &models.Note{UserID: user.ID, Title: "T", Content: "C"}
	require.NoError(t, repo.Create(ctx, note, []string{"a"}))
	assert.Equal(t, 1, recorder.count())

	note.Content = "edited"
	require.NoError(t, repo.Update(ctx, note, nil))
	assert.Equal(t, 1, recorder.count(), "nil tags keep the current set")
	assert.Equal(t, []string{"a"}, models.TagNames(note.Tags))

	require.NoError(t, repo.Update(ctx, note, []string{"A"}))
	assert.Equal(t, 1, recorder.count(), "same tags in a different case are not a change")

	require.NoError(t, repo.Update(ctx, note, []string{"a", "b"}))
	assert.Equal(t, 2, recorder.count())

	got, err := repo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.ElementsMatch(t, []string{"a", "b"}, models.TagNames(got.Tags))

	require.NoError(t, repo.Update(ctx, note, []string{}))
	assert.Equal(t, 3, recorder.count())
	assert.Empty(t, note.Tags)
}

func TestNoteRepository_Delete(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	repo := database.NewNoteRepository(db)
	recorder := &tagChangeRecorder{}
	repo.SetTagChangeHandler(recorder.handle)
	ctx := context.Background()

	keep := &models.Note{UserID: user.ID, Content: "keep"}
	drop := &models.Note{UserID: user.ID, Content: "drop"}
	require.NoError(t, repo.Create(ctx, keep, nil))
	require.NoError(t, repo.Create(ctx, drop, []string{"x"}))

	require.NoError(t, repo.Delete(ctx, drop.ID))
	assert.Equal(t, 2, recorder.count())

	notes, err := repo.List(ctx, user.ID, database.NoteFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, keep.ID, notes[0].ID)

	err = repo.Delete(ctx, drop.ID)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}
