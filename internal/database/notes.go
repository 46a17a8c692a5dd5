package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// NoteFilter narrows a note listing. Zero values mean "no restriction".
type NoteFilter struct {
	Query     string
	Tag       string
	ProjectID *uuid.UUID
}

// NoteRepository handles note database operations
type NoteRepository struct {
	db *DB
	tagChangeNotifier
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = `id, user_id, title, content, project_id, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	n := &models.Note{}
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.ProjectID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Tags = []models.Tag{}
	return n, nil
}

// Create inserts a note and links the named tags, creating missing tags.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note, tagNames []string) error {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	tagNames = models.NormalizeTagNames(tagNames)
	now := utcNow()

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notes (id, user_id, title, content, project_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, note.ID, note.UserID, note.Title, note.Content, note.ProjectID, now, now)
		if err != nil {
			return wrapErr("failed to create note", err)
		}
		tags, err := findOrCreateTags(ctx, tx, note.UserID, tagNames)
		if err != nil {
			return err
		}
		if err := noteTagLink.replace(ctx, tx, note.ID, tags); err != nil {
			return err
		}
		note.Tags = tags
		return nil
	})
	if err != nil {
		return err
	}

	note.CreatedAt, note.UpdatedAt = now, now
	if len(tagNames) > 0 {
		r.notify(ctx, note.UserID)
	}
	return nil
}

// GetByID retrieves a note and its tags.
func (r *NoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	note, err := scanNote(r.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr("failed to get note", err)
	}
	tags, err := noteTagLink.load(ctx, r.db, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if t, ok := tags[id]; ok {
		note.Tags = t
	}
	return note, nil
}

// List returns a user's notes, newest first.
func (r *NoteRepository) List(ctx context.Context, userID uuid.UUID, filter NoteFilter) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1`
	args := []any{userID}
	argIndex := 2

	if filter.Query != "" {
		query += fmt.Sprintf(` AND (LOWER(title) LIKE $%d ESCAPE '\' OR LOWER(content) LIKE $%d ESCAPE '\')`, argIndex, argIndex)
		args = append(args, likePattern(filter.Query))
		argIndex++
	}
	if filter.ProjectID != nil {
		query += fmt.Sprintf(" AND project_id = $%d", argIndex)
		args = append(args, *filter.ProjectID)
		argIndex++
	}
	if filter.Tag != "" {
		query += noteTagLink.filterClause("id", argIndex)
		args = append(args, filter.Tag)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to query notes", err)
	}
	defer rows.Close()

	notes := []*models.Note{}
	var ids []uuid.UUID
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	tags, err := noteTagLink.load(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		if t, ok := tags[n.ID]; ok {
			n.Tags = t
		}
	}
	return notes, nil
}

// Update writes the note's fields. When tagNames is non-nil the note's tags are
// replaced by it; nil leaves the tags as they are.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note, tagNames []string) error {
	now := utcNow()
	changed := false

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE notes SET title = $2, content = $3, project_id = $4, updated_at = $5
			WHERE id = $1
		`, note.ID, note.Title, note.Content, note.ProjectID, now)
		if err != nil {
			return wrapErr("failed to update note", err)
		}
		if err := checkAffected("failed to update note", res); err != nil {
			return err
		}

		current, err := noteTagLink.load(ctx, tx, []uuid.UUID{note.ID})
		if err != nil {
			return err
		}
		note.Tags = current[note.ID]
		if tagNames == nil {
			return nil
		}

		tagNames = models.NormalizeTagNames(tagNames)
		if tagsEqual(models.TagNames(note.Tags), tagNames) {
			return nil
		}
		tags, err := findOrCreateTags(ctx, tx, note.UserID, tagNames)
		if err != nil {
			return err
		}
		if err := noteTagLink.replace(ctx, tx, note.ID, tags); err != nil {
			return err
		}
		note.Tags = tags
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if note.Tags == nil {
		note.Tags = []models.Tag{}
	}
	note.UpdatedAt = now
	if changed {
		r.notify(ctx, note.UserID)
	}
	return nil
}

// Delete deletes a note by ID
func (r *NoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var userID uuid.UUID
	var tagCount int
	err := r.db.QueryRowContext(ctx, `
		SELECT n.user_id, (SELECT COUNT(*) FROM note_tags WHERE note_id = n.id)
		FROM notes n WHERE n.id = $1
	`, id).Scan(&userID, &tagCount)
	if err != nil {
		return wrapErr("failed to delete note", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return wrapErr("failed to delete note", err)
	}
	if err := checkAffected("failed to delete note", res); err != nil {
		return err
	}
	if tagCount > 0 {
		r.notify(ctx, userID)
	}
	return nil
}
