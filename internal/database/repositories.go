package database

import (
	"context"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, filter TaskFilter, page, pageSize int) ([]*models.Task, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	ListOpenDueBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*models.Task, error)
	CountByStatus(ctx context.Context, userID uuid.UUID) (*models.TaskStatusCounts, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// JournalRepositoryInterface defines the interface for journal repository operations
type JournalRepositoryInterface interface {
	Create(ctx context.Context, entry *models.JournalEntry) error
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.JournalEntry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// PomodoroRepositoryInterface defines the interface for pomodoro repository operations
type PomodoroRepositoryInterface interface {
	Create(ctx context.Context, s *models.PomodoroSession) error
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.PomodoroSession, error)
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	EnsureFromClaims(ctx context.Context, claims *models.TokenClaims) (*models.User, error)
}

// UserActivityRepositoryInterface defines the interface for user activity repository operations
type UserActivityRepositoryInterface interface {
	UpdateLastInteraction(ctx context.Context, userID uuid.UUID) error
	SetRemindersPaused(ctx context.Context, userID uuid.UUID, paused bool) error
	GetActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// CORSSettingsSource is read by the CORS reloader
type CORSSettingsSource interface {
	CORS(ctx context.Context) (*models.CORSSettings, error)
}

// RateLimitSettingsStore is read by the rate limit reloader, which seeds the default
type RateLimitSettingsStore interface {
	RateLimit(ctx context.Context) (*models.RateLimitSettings, error)
	SetRateLimit(ctx context.Context, s *models.RateLimitSettings) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface         = (*TaskRepository)(nil)
	_ JournalRepositoryInterface      = (*JournalRepository)(nil)
	_ PomodoroRepositoryInterface     = (*PomodoroRepository)(nil)
	_ UserRepositoryInterface         = (*UserRepository)(nil)
	_ UserActivityRepositoryInterface = (*UserActivityRepository)(nil)
	_ CORSSettingsSource              = (*SettingsRepository)(nil)
	_ RateLimitSettingsStore          = (*SettingsRepository)(nil)
)
