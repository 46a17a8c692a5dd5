package database

import (
	"context"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// NoteRepositoryInterface defines note persistence used by handlers and workers
type NoteRepositoryInterface interface {
	Create(ctx context.Context, note *models.Note, tagNames []string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error)
	List(ctx context.Context, userID uuid.UUID, filter NoteFilter) ([]*models.Note, error)
	Update(ctx context.Context, note *models.Note, tagNames []string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskRepositoryInterface defines task persistence used by handlers and workers
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task, tagNames []string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task, tagNames []string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProjectRepositoryInterface defines project persistence
type ProjectRepositoryInterface interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, userID uuid.UUID, filter ProjectFilter) ([]*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AreaRepositoryInterface defines area persistence
type AreaRepositoryInterface interface {
	Create(ctx context.Context, a *models.Area) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Area, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Area, error)
	Update(ctx context.Context, a *models.Area) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TagRepositoryInterface defines tag persistence
type TagRepositoryInterface interface {
	Create(ctx context.Context, t *models.Tag) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error)
	Update(ctx context.Context, t *models.Tag) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TagStatisticsRepositoryInterface defines tag statistics persistence
type TagStatisticsRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
	GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
	UpdateStatistics(ctx context.Context, stats *models.TagStatistics) (bool, error)
	MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error)
}

// UserRepositoryInterface defines the user lookups authentication needs
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
}

// APITokenRepositoryInterface defines personal access token persistence
type APITokenRepositoryInterface interface {
	Create(ctx context.Context, t *models.APIToken) error
	GetByPrefix(ctx context.Context, prefix string) (*models.APIToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIToken, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, prefix string) error
}

// Ensure concrete types implement the interfaces
var (
	_ NoteRepositoryInterface          = (*NoteRepository)(nil)
	_ TaskRepositoryInterface          = (*TaskRepository)(nil)
	_ ProjectRepositoryInterface       = (*ProjectRepository)(nil)
	_ AreaRepositoryInterface          = (*AreaRepository)(nil)
	_ TagRepositoryInterface           = (*TagRepository)(nil)
	_ TagStatisticsRepositoryInterface = (*TagStatisticsRepository)(nil)
	_ UserRepositoryInterface          = (*UserRepository)(nil)
	_ APITokenRepositoryInterface      = (*APITokenRepository)(nil)
)
