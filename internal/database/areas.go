package database

import (
	"context"
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// AreaRepository handles area database operations
type AreaRepository struct {
	db *DB
}

// NewAreaRepository creates a new area repository
func NewAreaRepository(db *DB) *AreaRepository {
	return &AreaRepository{db: db}
}

func (r *AreaRepository) Create(ctx context.Context, a *models.Area) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := utcNow()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO areas (id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.UserID, a.Name, a.Description, now, now)
	if err != nil {
		return wrapErr("failed to create area", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (r *AreaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Area, error) {
	a := &models.Area{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, created_at, updated_at FROM areas WHERE id = $1
	`, id).Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, wrapErr("failed to get area", err)
	}
	return a, nil
}

func (r *AreaRepository) List(ctx context.Context, userID uuid.UUID) ([]*models.Area, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM areas WHERE user_id = $1 ORDER BY LOWER(name), id
	`, userID)
	if err != nil {
		return nil, wrapErr("failed to query areas", err)
	}
	defer rows.Close()

	areas := []*models.Area{}
	for rows.Next() {
		a := &models.Area{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating areas: %w", err)
	}
	return areas, nil
}

func (r *AreaRepository) Update(ctx context.Context, a *models.Area) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx, `
		UPDATE areas SET name = $2, description = $3, updated_at = $4 WHERE id = $1
	`, a.ID, a.Name, a.Description, now)
	if err != nil {
		return wrapErr("failed to update area", err)
	}
	if err := checkAffected("failed to update area", res); err != nil {
		return err
	}
	a.UpdatedAt = now
	return nil
}

// Delete removes an area; its projects stay and become unfiled.
func (r *AreaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM areas WHERE id = $1`, id)
	if err != nil {
		return wrapErr("failed to delete area", err)
	}
	return checkAffected("failed to delete area", res)
}
