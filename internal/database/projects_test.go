package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository_ListFilters(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()
	areas := database.NewAreaRepository(db)
	repo := database.NewProjectRepository(db)

	home := &models.Area{UserID: user.ID, Name: "Home"}
	require.NoError(t, areas.Create(ctx, home))

	active := &models.Project{UserID: user.ID, Name: "b-active", Active: true, AreaID: uuid.NullUUID{UUID: home.ID, Valid: true}}
	pinned := &models.Project{UserID: user.ID, Name: "z-pinned", Active: true, PinToSidebar: true}
	inactive := &models.Project{UserID: user.ID, Name: "a-inactive", Active: false}
	for _, p := range []*models.Project{active, pinned, inactive} {
		require.NoError(t, repo.Create(ctx, p))
	}

	all, err := repo.List(ctx, user.ID, database.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, pinned.ID, all[0].ID, "pinned projects sort first")
	assert.Equal(t, inactive.ID, all[1].ID)

	yes, no := true, false
	onlyActive, err := repo.List(ctx, user.ID, database.ProjectFilter{Active: &yes})
	require.NoError(t, err)
	assert.Len(t, onlyActive, 2)

	onlyInactive, err := repo.List(ctx, user.ID, database.ProjectFilter{Active: &no})
	require.NoError(t, err)
	require.Len(t, onlyInactive, 1)
	assert.Equal(t, inactive.ID, onlyInactive[0].ID)

	inArea, err := repo.List(ctx, user.ID, database.ProjectFilter{AreaID: &home.ID})
	require.NoError(t, err)
	require.Len(t, inArea, 1)
	assert.Equal(t, active.ID, inArea[0].ID)
}

func TestProjectRepository_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()
	repo := database.NewProjectRepository(db)
	notes := database.NewNoteRepository(db)

	p := testutil.CreateProject(t, db, user.ID, "Launch")
	p.Name = "Launch v2"
	p.Active = false
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", got.Name)
	assert.False(t, got.Active)

	note := &models.Note{UserID: user.ID, Content: "retro", ProjectID: uuid.NullUUID{UUID: p.ID, Valid: true}}
	require.NoError(t, notes.Create(ctx, note, nil))

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.True(t, errors.Is(err, database.ErrNotFound))

	orphan, err := notes.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.False(t, orphan.ProjectID.Valid, "deleting a project keeps its notes")

	missing := &models.Project{ID: uuid.New(), Name: "ghost"}
	assert.True(t, errors.Is(repo.Update(ctx, missing), database.ErrNotFound))
}

func TestTagRepository_UniquePerUserIgnoringCase(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db)
	bob := testutil.CreateUser(t, db)
	ctx := context.Background()
	repo := database.NewTagRepository(db)

	require.NoError(t, repo.Create(ctx, &models.Tag{UserID: alice.ID, Name: "Work"}))
	err := repo.Create(ctx, &models.Tag{UserID: alice.ID, Name: "work"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrConflict), "got %v", err)

	require.NoError(t, repo.Create(ctx, &models.Tag{UserID: bob.ID, Name: "work"}))

	tags, err := repo.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Work", tags[0].Name)
}

func TestTagRepository_DeleteDetachesFromNotes(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()
	tags := database.NewTagRepository(db)
	notes := database.NewNoteRepository(db)
	recorder := &tagChangeRecorder{}
	tags.SetTagChangeHandler(recorder.handle)

	note := &models.Note{UserID: user.ID, Content: "tagged"}
	require.NoError(t, notes.Create(ctx, note, []string{"temp", "keep"}))

	var temp models.Tag
	for _, tag := range note.Tags {
		if tag.Name == "temp" {
			temp = tag
		}
	}
	require.NotEqual(t, uuid.Nil, temp.ID)
	require.NoError(t, tags.Delete(ctx, temp.ID))
	assert.Equal(t, 1, recorder.count())
	assert.True(t, errors.Is(tags.Delete(ctx, temp.ID), database.ErrNotFound))

	got, err := notes.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, models.TagNames(got.Tags))
}

func TestTagStatisticsRepository_TaintAndVersioning(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()
	repo := database.NewTagStatisticsRepository(db)

	_, err := repo.GetByUserID(ctx, user.ID)
	assert.True(t, errors.Is(err, database.ErrNotFound))

	transitioned, err := repo.MarkTainted(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, transitioned, "creating the record counts as a transition")

	transitioned, err = repo.MarkTainted(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, transitioned, "already tainted")

	stats, err := repo.GetByUserIDOrCreate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stats.Tainted)
	assert.Equal(t, 1, stats.AnalysisVersion, "every taint advances the version")

	stale := *stats
	stats.Usage = map[string]models.TagUsage{"work": {Total: 2, Notes: 1, Tasks: 1, OpenTasks: 1}}
	ok, err := repo.UpdateStatistics(ctx, stats)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, stats.AnalysisVersion)

	stale.Usage = map[string]models.TagUsage{}
	ok, err = repo.UpdateStatistics(ctx, &stale)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must lose")

	stored, err := repo.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.Tainted)
	assert.Equal(t, models.TagUsage{Total: 2, Notes: 1, Tasks: 1, OpenTasks: 1}, stored.Usage["work"])
	require.NotNil(t, stored.LastAnalyzedAt)

	transitioned, err = repo.MarkTainted(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)

	// A taint between read and write makes the analysis lose.
	inFlight, err := repo.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	_, err = repo.MarkTainted(ctx, user.ID)
	require.NoError(t, err)
	ok, err = repo.UpdateStatistics(ctx, inFlight)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAPITokenRepository(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()
	repo := database.NewAPITokenRepository(db)

	token := &models.APIToken{UserID: user.ID, Name: "laptop", Prefix: "abc123", Hash: "hash"}
	require.NoError(t, repo.Create(ctx, token))

	dup := &models.APIToken{UserID: user.ID, Name: "dup", Prefix: "abc123", Hash: "hash"}
	assert.True(t, errors.Is(repo.Create(ctx, dup), database.ErrConflict))

	got, err := repo.GetByPrefix(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "laptop", got.Name)
	assert.Equal(t, "hash", got.Hash)
	assert.Nil(t, got.LastUsedAt)

	require.NoError(t, repo.TouchLastUsed(ctx, got.ID, got.CreatedAt))
	listed, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotNil(t, listed[0].LastUsedAt)

	require.NoError(t, repo.Delete(ctx, "abc123"))
	assert.True(t, errors.Is(repo.Delete(ctx, "abc123"), database.ErrNotFound))
}
