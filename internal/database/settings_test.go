package database_test

import (
	"context"
	"testing"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorsConfigRepository(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := database.NewCorsConfigRepository(db)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "nothing stored yet")

	require.NoError(t, repo.Set(ctx, &models.CorsConfig{
		AllowedOrigins:   "https://notes.example.com, http://localhost:3000, https://notes.example.com",
		AllowCredentials: true,
		MaxAge:           600,
	}))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CorsConfigKey, got.ConfigKey)
	assert.Equal(t, []string{"https://notes.example.com", "http://localhost:3000"}, got.Origins())
	assert.Equal(t, 600, got.MaxAge)

	require.NoError(t, repo.Set(ctx, &models.CorsConfig{AllowedOrigins: "*"}))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "*", got.AllowedOrigins)
	assert.False(t, got.AllowCredentials)
}

func TestCorsConfigRepository_SetRejects(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := database.NewCorsConfigRepository(db)

	tests := []struct {
		name string
		cfg  models.CorsConfig
	}{
		{"empty", models.CorsConfig{AllowedOrigins: " , "}},
		{"no scheme", models.CorsConfig{AllowedOrigins: "localhost:3000"}},
		{"ftp", models.CorsConfig{AllowedOrigins: "ftp://example.com"}},
		{"no host", models.CorsConfig{AllowedOrigins: "https://"}},
		{"path", models.CorsConfig{AllowedOrigins: "https://example.com/app"}},
		{"negative max age", models.CorsConfig{AllowedOrigins: "https://example.com", MaxAge: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, repo.Set(context.Background(), &tt.cfg))
		})
	}

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRatelimitConfigRepository(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := database.NewRatelimitConfigRepository(db)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, repo.Set(ctx, &models.RatelimitConfig{Rate: "  "}))

	require.NoError(t, repo.Set(ctx, &models.RatelimitConfig{Rate: " 100-M "}))
	require.NoError(t, repo.Set(ctx, &models.RatelimitConfig{Rate: "5-S"}))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "5-S", got.Rate)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}
