package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// TagRepository handles tag database operations
type TagRepository struct {
	tagChangeNotifier
	db *DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

// List returns all of a user's tags ordered by name.
func (r *TagRepository) List(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name FROM tags WHERE user_id = $1 ORDER BY LOWER(name)
	`, userID)
	if err != nil {
		return nil, wrapErr("failed to query tags", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		t := &models.Tag{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// GetByID retrieves a tag by ID
func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	t := &models.Tag{}
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, name FROM tags WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID, &t.Name)
	if err != nil {
		return nil, wrapErr("failed to get tag", err)
	}
	return t, nil
}

// Create inserts a tag. Names are unique per user regardless of case.
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)
	`, tag.ID, tag.UserID, tag.Name, utcNow())
	return wrapErr("failed to create tag", err)
}

// Update renames a tag.
func (r *TagRepository) Update(ctx context.Context, tag *models.Tag) error {
	err := r.db.QueryRowContext(ctx, `UPDATE tags SET name = $2 WHERE id = $1 RETURNING user_id`, tag.ID, tag.Name).
		Scan(&tag.UserID)
	if err != nil {
		return wrapErr("failed to update tag", err)
	}
	r.notify(ctx, tag.UserID)
	return nil
}

// Delete removes a tag and detaches it from every note and task.
func (r *TagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var userID uuid.UUID
	err := r.db.QueryRowContext(ctx, `DELETE FROM tags WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
	if err != nil {
		return wrapErr("failed to delete tag", err)
	}
	r.notify(ctx, userID)
	return nil
}

// findOrCreateTags resolves tag names to tags for a user, creating missing ones.
// Names are matched case-insensitively and must already be normalized.
func findOrCreateTags(ctx context.Context, q querier, userID uuid.UUID, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		t := models.Tag{UserID: userID}
		err := q.QueryRowContext(ctx, `
			SELECT id, name FROM tags WHERE user_id = $1 AND LOWER(name) = LOWER($2)
		`, userID, name).Scan(&t.ID, &t.Name)
		if errors.Is(err, sql.ErrNoRows) {
			t.ID = uuid.New()
			t.Name = name
			_, err = q.ExecContext(ctx, `
				INSERT INTO tags (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)
			`, t.ID, userID, name, utcNow())
		}
		if err != nil {
			return nil, wrapErr(fmt.Sprintf("failed to resolve tag %q", name), err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// tagLink describes a join table between a record table and tags.
type tagLink struct {
	table  string
	column string
}

var (
	noteTagLink = tagLink{table: "note_tags", column: "note_id"}
	taskTagLink = tagLink{table: "task_tags", column: "task_id"}
)

// replace sets the tags linked to recordID to exactly tags.
func (l tagLink) replace(ctx context.Context, q querier, recordID uuid.UUID, tags []models.Tag) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, l.table, l.column), recordID); err != nil {
		return wrapErr("failed to clear tags", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s, tag_id) VALUES ($1, $2)`, l.table, l.column)
	for _, t := range tags {
		if _, err := q.ExecContext(ctx, insert, recordID, t.ID); err != nil {
			return wrapErr("failed to link tag", err)
		}
	}
	return nil
}

// load fetches the tags linked to each of ids.
func (l tagLink) load(ctx context.Context, q querier, ids []uuid.UUID) (map[uuid.UUID][]models.Tag, error) {
	out := make(map[uuid.UUID][]models.Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT l.%s, t.id, t.name
		FROM %s l JOIN tags t ON t.id = l.tag_id
		WHERE l.%s IN (%s)
		ORDER BY LOWER(t.name)
	`, l.column, l.table, l.column, placeholders(1, len(ids)))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to load tags", err)
	}
	defer rows.Close()
	for rows.Next() {
		var recordID uuid.UUID
		var t models.Tag
		if err := rows.Scan(&recordID, &t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out[recordID] = append(out[recordID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return out, nil
}

// filterClause restricts a record query to rows tagged with the tag named by
// placeholder $n.
func (l tagLink) filterClause(idColumn string, n int) string {
	return fmt.Sprintf(` AND %s IN (SELECT l.%s FROM %s l JOIN tags t ON t.id = l.tag_id WHERE LOWER(t.name) = LOWER($%d))`,
		idColumn, l.column, l.table, n)
}

// tagsEqual compares two tag name sets ignoring order and case.
func tagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, name := range a {
		counts[strings.ToLower(name)]++
	}
	for _, name := range b {
		key := strings.ToLower(name)
		if counts[key] == 0 {
			return false
		}
		counts[key]--
	}
	return true
}
