package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// APITokenRepository stores personal access tokens
type APITokenRepository struct {
	db *DB
}

// NewAPITokenRepository creates a new API token repository
func NewAPITokenRepository(db *DB) *APITokenRepository {
	return &APITokenRepository{db: db}
}

func scanToken(row interface{ Scan(...any) error }) (*models.APIToken, error) {
	t := &models.APIToken{}
	var lastUsed sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Prefix, &t.Hash, &lastUsed, &t.CreatedAt); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}
	return t, nil
}

// Create stores a token. Hash must already be computed.
func (r *APITokenRepository) Create(ctx context.Context, t *models.APIToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := utcNow()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, user_id, name, prefix, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.UserID, t.Name, t.Prefix, t.Hash, now)
	if err != nil {
		return wrapErr("failed to create api token", err)
	}
	t.CreatedAt = now
	return nil
}

// GetByPrefix looks a token up by its public prefix.
func (r *APITokenRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIToken, error) {
	t, err := scanToken(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, prefix, hash, last_used_at, created_at
		FROM api_tokens WHERE prefix = $1
	`, prefix))
	if err != nil {
		return nil, wrapErr("failed to get api token", err)
	}
	return t, nil
}

// ListByUser returns a user's tokens, newest first.
func (r *APITokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, prefix, hash, last_used_at, created_at
		FROM api_tokens WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, wrapErr("failed to query api tokens", err)
	}
	defer rows.Close()

	var tokens []*models.APIToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api tokens: %w", err)
	}
	return tokens, nil
}

// TouchLastUsed records a successful authentication with the token.
func (r *APITokenRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, id, at.UTC())
	return wrapErr("failed to touch api token", err)
}

// Delete revokes a token by prefix.
func (r *APITokenRepository) Delete(ctx context.Context, prefix string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE prefix = $1`, prefix)
	if err != nil {
		return wrapErr("failed to delete api token", err)
	}
	return checkAffected("failed to delete api token", res)
}
