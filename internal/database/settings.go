package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/benvon/smart-notes/internal/models"
)

// Operator settings live in single-row tables keyed by config_key. A missing
// row means "use the built-in default", so lookups return nil, nil.

func scanSetting(row *sql.Row, op string, dest ...any) (bool, error) {
	err := row.Scan(dest...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, wrapErr(op, err)
	}
	return true, nil
}

// CorsConfigRepository persists the origins the server hot-reloads.
type CorsConfigRepository struct {
	db *DB
}

// NewCorsConfigRepository returns a repository over the cors_config table.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get loads the stored policy, or nil when the operator never set one.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	var c models.CorsConfig
	found, err := scanSetting(r.db.QueryRowContext(ctx,
		`SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at
		 FROM cors_config WHERE config_key = $1`, models.CorsConfigKey),
		"get cors config",
		&c.ConfigKey, &c.AllowedOrigins, &c.AllowCredentials, &c.MaxAge, &c.CreatedAt, &c.UpdatedAt,
	)
	if !found {
		return nil, err
	}
	return &c, nil
}

// Set replaces the stored policy after checking every origin.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	origins := c.Origins()
	if len(origins) == 0 {
		return errors.New("at least one allowed origin is required")
	}
	for _, origin := range origins {
		if err := checkOrigin(origin); err != nil {
			return err
		}
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max age %d is negative", c.MaxAge)
	}

	ts := utcNow()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at`,
		models.CorsConfigKey, strings.Join(origins, ","), c.AllowCredentials, c.MaxAge, ts)
	return wrapErr("set cors config", err)
}

// checkOrigin accepts "*" or a bare scheme://host[:port] origin.
func checkOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && strings.TrimSuffix(u.Path, "/") == "" {
		return nil
	}
	return fmt.Errorf("origin %q is not of the form scheme://host[:port]", origin)
}

// RatelimitConfigRepository persists the request rate the server hot-reloads.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository returns a repository over the ratelimit_config table.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get loads the stored rate, or nil when the operator never set one.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	var c models.RatelimitConfig
	found, err := scanSetting(r.db.QueryRowContext(ctx,
		`SELECT config_key, rate, created_at, updated_at
		 FROM ratelimit_config WHERE config_key = $1`, models.RatelimitConfigKey),
		"get ratelimit config",
		&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt,
	)
	if !found {
		return nil, err
	}
	return &c, nil
}

// Set stores the rate as given; callers parse it with the limiter first.
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return errors.New("rate is required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at`,
		models.RatelimitConfigKey, rate, utcNow())
	return wrapErr("set ratelimit config", err)
}
