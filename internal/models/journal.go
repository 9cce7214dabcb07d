package models

import (
	"time"

	"github.com/google/uuid"
)

// JournalEntry is a daily journal record with self-reported mood and productivity (1-5)
type JournalEntry struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Date         time.Time `json:"date"`
	Entry        string    `json:"entry"`
	Mood         int       `json:"mood"`
	Productivity int       `json:"productivity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
