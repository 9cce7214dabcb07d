package database

import (
	"context"
	"fmt"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

// PomodoroRepository handles pomodoro session database operations
type PomodoroRepository struct {
	db *DB
}

// NewPomodoroRepository creates a new pomodoro repository
func NewPomodoroRepository(db *DB) *PomodoroRepository {
	return &PomodoroRepository{db: db}
}

// Create records a pomodoro session
func (r *PomodoroRepository) Create(ctx context.Context, s *models.PomodoroSession) error {
	query := `
		INSERT INTO pomodoro_sessions (id, user_id, task_id, session_date, total_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, query, s.ID, s.UserID, s.TaskID, s.Date, s.TotalMinutes, time.Now()).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pomodoro session: %w", err)
	}
	return nil
}

// ListSince returns a user's sessions dated on or after since, oldest first
func (r *PomodoroRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.PomodoroSession, error) {
	query := `
		SELECT id, user_id, task_id, session_date, total_minutes, created_at
		FROM pomodoro_sessions
		WHERE user_id = $1 AND session_date >= $2
		ORDER BY session_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query pomodoro sessions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	sessions := make([]*models.PomodoroSession, 0)
	for rows.Next() {
		s := &models.PomodoroSession{}
		var taskID uuid.NullUUID
		if err := rows.Scan(&s.ID, &s.UserID, &taskID, &s.Date, &s.TotalMinutes, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pomodoro session: %w", err)
		}
		if taskID.Valid {
			id := taskID.UUID
			s.TaskID = &id
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pomodoro sessions: %w", err)
	}
	return sessions, nil
}
