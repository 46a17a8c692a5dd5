package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, provider_id, name, email_verified, last_active_at, created_at, updated_at`

func (r *UserRepository) getOne(ctx context.Context, op, where string, arg any) (*models.User, error) {
	user := &models.User{}
	var lastActive sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg).Scan(
		&user.ID,
		&user.Email,
		&user.ProviderID,
		&user.Name,
		&user.EmailVerified,
		&lastActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if lastActive.Valid {
		user.LastActiveAt = &lastActive.Time
	}
	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := utcNow()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, provider_id, name, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.ProviderID, user.Name, user.EmailVerified, now, now)
	if err != nil {
		return wrapErr("failed to create user", err)
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, "failed to get user", "id", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "failed to get user by email", "email", email)
}

// GetByProviderID retrieves a user by the identity provider's subject
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	return r.getOne(ctx, "failed to get user by provider ID", "provider_id", providerID)
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, provider_id = $3, name = $4, email_verified = $5, updated_at = $6
		WHERE id = $1
	`, user.ID, user.Email, user.ProviderID, user.Name, user.EmailVerified, now)
	if err != nil {
		return wrapErr("failed to update user", err)
	}
	if err := checkAffected("failed to update user", res); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

// TouchLastActive records that the user made an authenticated request at.
func (r *UserRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_active_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return wrapErr("failed to record user activity", err)
	}
	return checkAffected("failed to record user activity", res)
}

// Delete deletes a user and, through cascades, everything they own.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapErr("failed to delete user", err)
	}
	return checkAffected("failed to delete user", res)
}
