package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserActivityRepository tracks when each user last called the API. The
// reminder evaluator only scans users seen recently whose reminders are on.
type UserActivityRepository struct {
	db *DB
}

// NewUserActivityRepository creates a user activity repository
func NewUserActivityRepository(db *DB) *UserActivityRepository {
	return &UserActivityRepository{db: db}
}

// UpdateLastInteraction stamps the user's last API call with the current time
func (r *UserActivityRepository) UpdateLastInteraction(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_activity (user_id, last_api_interaction, reminders_paused, created_at, updated_at)
		VALUES ($1, $2, false, $2, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			last_api_interaction = EXCLUDED.last_api_interaction,
			updated_at = EXCLUDED.updated_at
	`, userID, now)
	if err != nil {
		return fmt.Errorf("update last interaction for %s: %w", userID, err)
	}
	return nil
}

// SetRemindersPaused switches background reminders off or on. The row is
// created if the user has not been seen yet.
func (r *UserActivityRepository) SetRemindersPaused(ctx context.Context, userID uuid.UUID, paused bool) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_activity (user_id, last_api_interaction, reminders_paused, created_at, updated_at)
		VALUES ($1, $2, $3, $2, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			reminders_paused = EXCLUDED.reminders_paused,
			updated_at = EXCLUDED.updated_at
	`, userID, now, paused)
	if err != nil {
		return fmt.Errorf("set reminders paused for %s: %w", userID, err)
	}
	return nil
}

// GetActiveUsersSince lists users with reminders on who called the API at or after since
func (r *UserActivityRepository) GetActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id
		FROM user_activity
		WHERE NOT reminders_paused
		  AND last_api_interaction >= $1
		ORDER BY user_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
