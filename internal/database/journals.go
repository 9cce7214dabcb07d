package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

// JournalRepository handles journal entry database operations
type JournalRepository struct {
	db *DB
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create creates a new journal entry
func (r *JournalRepository) Create(ctx context.Context, entry *models.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (id, user_id, entry_date, entry, mood, productivity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING created_at, updated_at
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Date,
		entry.Entry,
		entry.Mood,
		entry.Productivity,
		time.Now(),
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	return nil
}

// ListSince returns a user's journal entries dated on or after since, oldest first
func (r *JournalRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.JournalEntry, error) {
	query := `
		SELECT id, user_id, entry_date, entry, mood, productivity, created_at, updated_at
		FROM journal_entries
		WHERE user_id = $1 AND entry_date >= $2
		ORDER BY entry_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	entries := make([]*models.JournalEntry, 0)
	for rows.Next() {
		e := &models.JournalEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Entry, &e.Mood, &e.Productivity, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}
	return entries, nil
}

// Delete deletes a user's journal entry
func (r *JournalRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("journal entry not found: %w", sql.ErrNoRows)
	}
	return nil
}
