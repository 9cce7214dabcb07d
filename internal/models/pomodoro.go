package models

import (
	"time"

	"github.com/google/uuid"
)

// PomodoroSession records focused minutes logged on a given day
type PomodoroSession struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	TaskID       *uuid.UUID `json:"task_id,omitempty"`
	Date         time.Time  `json:"date"`
	TotalMinutes int        `json:"total_minutes"`
	CreatedAt    time.Time  `json:"created_at"`
}
