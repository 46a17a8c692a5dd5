// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// NewDB opens an in-memory SQLite database with the schema applied. It is
// closed when the test finishes.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.New("sqlite::memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	migrator, err := database.NewMigrator(db)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a user with a unique email.
func CreateUser(t testing.TB, db *database.DB) *models.User {
	t.Helper()

	id := uuid.New()
	user := &models.User{ID: id, Email: fmt.Sprintf("%s@example.com", id)}
	if err := database.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateProject inserts an active project owned by userID.
func CreateProject(t testing.TB, db *database.DB, userID uuid.UUID, name string) *models.Project {
	t.Helper()

	p := &models.Project{UserID: userID, Name: name, Active: true}
	if err := database.NewProjectRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return p
}
