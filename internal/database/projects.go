package database

import (
	"context"
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// ProjectFilter narrows a project listing. A nil Active lists every project.
type ProjectFilter struct {
	Active *bool
	AreaID *uuid.UUID
}

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, user_id, area_id, name, description, active, pin_to_sidebar, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(&p.ID, &p.UserID, &p.AreaID, &p.Name, &p.Description, &p.Active, &p.PinToSidebar, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := utcNow()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, user_id, area_id, name, description, active, pin_to_sidebar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.UserID, p.AreaID, p.Name, p.Description, p.Active, p.PinToSidebar, now, now)
	if err != nil {
		return wrapErr("failed to create project", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr("failed to get project", err)
	}
	return p, nil
}

// List returns a user's projects: pinned first, then by name.
func (r *ProjectRepository) List(ctx context.Context, userID uuid.UUID, filter ProjectFilter) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1`
	args := []any{userID}
	argIndex := 2

	if filter.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", argIndex)
		args = append(args, *filter.Active)
		argIndex++
	}
	if filter.AreaID != nil {
		query += fmt.Sprintf(" AND area_id = $%d", argIndex)
		args = append(args, *filter.AreaID)
	}
	query += " ORDER BY pin_to_sidebar DESC, LOWER(name), id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to query projects", err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// Update updates an existing project
func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET area_id = $2, name = $3, description = $4, active = $5, pin_to_sidebar = $6, updated_at = $7
		WHERE id = $1
	`, p.ID, p.AreaID, p.Name, p.Description, p.Active, p.PinToSidebar, now)
	if err != nil {
		return wrapErr("failed to update project", err)
	}
	if err := checkAffected("failed to update project", res); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// Delete removes a project. Its notes and tasks are kept and lose the reference.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return wrapErr("failed to delete project", err)
	}
	return checkAffected("failed to delete project", res)
}
