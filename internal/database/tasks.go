package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// upcomingWindow is how far past today the upcoming view looks.
const upcomingWindow = 7 * 24 * time.Hour

// TaskFilter narrows a task listing.
type TaskFilter struct {
	View      models.TaskView
	Status    *models.TaskStatus
	Tag       string
	ProjectID *uuid.UUID
	// Today anchors the date based views; zero means the current UTC date.
	Today time.Time
}

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
	tagChangeNotifier
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, project_id, name, note, status, priority, due_date, completed_at, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	var dueDate, completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.ProjectID, &t.Name, &t.Note, &t.Status, &t.Priority,
		&dueDate, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		d := models.DateOnly(dueDate.Time)
		t.DueDate = &d
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.Tags = []models.Tag{}
	return t, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: models.DateOnly(*t), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Create inserts a task and links the named tags.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task, tagNames []string) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusNotStarted
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	tagNames = models.NormalizeTagNames(tagNames)
	now := utcNow()

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, user_id, project_id, name, note, status, priority, due_date, completed_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, task.ID, task.UserID, task.ProjectID, task.Name, task.Note, task.Status, task.Priority,
			nullDate(task.DueDate), nullTime(task.CompletedAt), now, now)
		if err != nil {
			return wrapErr("failed to create task", err)
		}
		tags, err := findOrCreateTags(ctx, tx, task.UserID, tagNames)
		if err != nil {
			return err
		}
		if err := taskTagLink.replace(ctx, tx, task.ID, tags); err != nil {
			return err
		}
		task.Tags = tags
		return nil
	})
	if err != nil {
		return err
	}

	task.CreatedAt, task.UpdatedAt = now, now
	if task.DueDate != nil {
		d := models.DateOnly(*task.DueDate)
		task.DueDate = &d
	}
	if len(tagNames) > 0 {
		r.notify(ctx, task.UserID)
	}
	return nil
}

// GetByID retrieves a task and its tags.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr("failed to get task", err)
	}
	tags, err := taskTagLink.load(ctx, r.db, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if t, ok := tags[id]; ok {
		task.Tags = t
	}
	return task, nil
}

// List returns a user's tasks matching filter. Dated views sort by due date,
// everything else newest first.
func (r *TaskRepository) List(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error) {
	if !filter.View.Valid() {
		return nil, fmt.Errorf("unknown task view %q", filter.View)
	}
	today := filter.Today
	if today.IsZero() {
		today = utcNow()
	}
	today = models.DateOnly(today)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	argIndex := 2
	const open = ` AND status NOT IN ('done', 'archived')`
	order := " ORDER BY created_at DESC, id"

	switch filter.View {
	case models.TaskViewToday:
		query += open + fmt.Sprintf(" AND due_date IS NOT NULL AND due_date <= $%d", argIndex)
		args = append(args, today)
		argIndex++
		order = " ORDER BY due_date, created_at, id"
	case models.TaskViewUpcoming:
		query += open + fmt.Sprintf(" AND due_date > $%d AND due_date <= $%d", argIndex, argIndex+1)
		args = append(args, today, today.Add(upcomingWindow))
		argIndex += 2
		order = " ORDER BY due_date, created_at, id"
	case models.TaskViewNext:
		query += open + " AND due_date IS NULL AND project_id IS NOT NULL"
	case models.TaskViewInbox:
		query += open + " AND project_id IS NULL"
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(*filter.Status))
		argIndex++
	}
	if filter.ProjectID != nil {
		query += fmt.Sprintf(" AND project_id = $%d", argIndex)
		args = append(args, *filter.ProjectID)
		argIndex++
	}
	if filter.Tag != "" {
		query += taskTagLink.filterClause("id", argIndex)
		args = append(args, filter.Tag)
	}
	query += order

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to query tasks", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	var ids []uuid.UUID
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	tags, err := taskTagLink.load(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if tt, ok := tags[t.ID]; ok {
			t.Tags = tt
		}
	}
	return tasks, nil
}

// Update writes the task's fields. A non-nil tagNames replaces its tags.
// Status changes also re-trigger the tag change handler because open task
// counts are part of the tag statistics.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task, tagNames []string) error {
	now := utcNow()
	changed := false

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var previous models.TaskStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1`, task.ID).Scan(&previous); err != nil {
			return wrapErr("failed to update task", err)
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET project_id = $2, name = $3, note = $4, status = $5, priority = $6,
			    due_date = $7, completed_at = $8, updated_at = $9
			WHERE id = $1
		`, task.ID, task.ProjectID, task.Name, task.Note, task.Status, task.Priority,
			nullDate(task.DueDate), nullTime(task.CompletedAt), now)
		if err != nil {
			return wrapErr("failed to update task", err)
		}

		current, err := taskTagLink.load(ctx, tx, []uuid.UUID{task.ID})
		if err != nil {
			return err
		}
		task.Tags = current[task.ID]
		changed = previous.IsOpen() != task.Status.IsOpen() && len(task.Tags) > 0
		if tagNames == nil {
			return nil
		}

		tagNames = models.NormalizeTagNames(tagNames)
		if tagsEqual(models.TagNames(task.Tags), tagNames) {
			return nil
		}
		tags, err := findOrCreateTags(ctx, tx, task.UserID, tagNames)
		if err != nil {
			return err
		}
		if err := taskTagLink.replace(ctx, tx, task.ID, tags); err != nil {
			return err
		}
		task.Tags = tags
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if task.Tags == nil {
		task.Tags = []models.Tag{}
	}
	if task.DueDate != nil {
		d := models.DateOnly(*task.DueDate)
		task.DueDate = &d
	}
	task.UpdatedAt = now
	if changed {
		r.notify(ctx, task.UserID)
	}
	return nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var userID uuid.UUID
	var tagCount int
	err := r.db.QueryRowContext(ctx, `
		SELECT k.user_id, (SELECT COUNT(*) FROM task_tags WHERE task_id = k.id)
		FROM tasks k WHERE k.id = $1
	`, id).Scan(&userID, &tagCount)
	if err != nil {
		return wrapErr("failed to delete task", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return wrapErr("failed to delete task", err)
	}
	if err := checkAffected("failed to delete task", res); err != nil {
		return err
	}
	if tagCount > 0 {
		r.notify(ctx, userID)
	}
	return nil
}
