package database

import (
	"context"
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// OIDCConfigRepository handles OIDC provider configuration
type OIDCConfigRepository struct {
	db *DB
}

// NewOIDCConfigRepository creates a new OIDC config repository
func NewOIDCConfigRepository(db *DB) *OIDCConfigRepository {
	return &OIDCConfigRepository{db: db}
}

const oidcColumns = `id, provider, issuer, domain, client_id, client_secret, redirect_uri, jwks_url, created_at, updated_at`

func scanOIDC(row interface{ Scan(...any) error }) (*models.OIDCConfig, error) {
	c := &models.OIDCConfig{}
	err := row.Scan(&c.ID, &c.Provider, &c.Issuer, &c.Domain, &c.ClientID, &c.ClientSecret,
		&c.RedirectURI, &c.JWKSUrl, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Upsert creates or replaces the configuration for c.Provider. It reports
// whether a new row was created.
func (r *OIDCConfigRepository) Upsert(ctx context.Context, c *models.OIDCConfig) (bool, error) {
	existing, err := r.GetByProvider(ctx, c.Provider)
	if err == nil {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		now := utcNow()
		_, err = r.db.ExecContext(ctx, `
			UPDATE oidc_config
			SET issuer = $2, domain = $3, client_id = $4, client_secret = $5, redirect_uri = $6, jwks_url = $7, updated_at = $8
			WHERE provider = $1
		`, c.Provider, c.Issuer, c.Domain, c.ClientID, c.ClientSecret, c.RedirectURI, c.JWKSUrl, now)
		if err != nil {
			return false, wrapErr("failed to update OIDC config", err)
		}
		c.UpdatedAt = now
		return false, nil
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := utcNow()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO oidc_config (`+oidcColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.Provider, c.Issuer, c.Domain, c.ClientID, c.ClientSecret, c.RedirectURI, c.JWKSUrl, now, now)
	if err != nil {
		return false, wrapErr("failed to create OIDC config", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return true, nil
}

// GetByProvider retrieves an OIDC configuration by provider name
func (r *OIDCConfigRepository) GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	c, err := scanOIDC(r.db.QueryRowContext(ctx, `SELECT `+oidcColumns+` FROM oidc_config WHERE provider = $1`, provider))
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get OIDC config for provider %s", provider), err)
	}
	return c, nil
}

// GetAll retrieves all OIDC configurations ordered by provider
func (r *OIDCConfigRepository) GetAll(ctx context.Context) ([]*models.OIDCConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+oidcColumns+` FROM oidc_config ORDER BY provider`)
	if err != nil {
		return nil, wrapErr("failed to query OIDC configs", err)
	}
	defer rows.Close()

	var configs []*models.OIDCConfig
	for rows.Next() {
		c, err := scanOIDC(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan OIDC config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating OIDC configs: %w", err)
	}
	return configs, nil
}

// Delete deletes an OIDC configuration by provider
func (r *OIDCConfigRepository) Delete(ctx context.Context, provider string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM oidc_config WHERE provider = $1`, provider)
	if err != nil {
		return wrapErr("failed to delete OIDC config", err)
	}
	return checkAffected("failed to delete OIDC config", res)
}
