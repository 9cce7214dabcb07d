package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle position of a task on the board
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "inProgress"
	TaskStatusDone       TaskStatus = "done"
)

// Priority represents how important a task is
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task represents a kanban task
type Task struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Status           TaskStatus `json:"status"`
	Priority         Priority   `json:"priority"`
	Category         string     `json:"category"`
	Project          string     `json:"project,omitempty"`
	Tags             []string   `json:"tags"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	ActualMinutes    int        `json:"actual_minutes"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// IsDone reports whether the task is in the done column
func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

// IsOverdue reports whether an unfinished task is past its due date at now
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsDone() && t.DueDate != nil && t.DueDate.Before(now)
}

// SetStatus changes the status and keeps CompletedAt set exactly while the task is done.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if status == t.Status {
		return
	}
	t.Status = status
	if status == TaskStatusDone {
		completed := now
		t.CompletedAt = &completed
		return
	}
	t.CompletedAt = nil
}

// ValidTaskStatus reports whether s is a known task status
func ValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// ValidPriority reports whether s is a known task priority
func ValidPriority(s string) bool {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TaskStatusCounts is the number of tasks per board column
type TaskStatusCounts struct {
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
	Total      int `json:"total"`
}

// Add counts n tasks with the given status
func (c *TaskStatusCounts) Add(status TaskStatus, n int) {
	switch status {
	case TaskStatusTodo:
		c.Todo += n
	case TaskStatusInProgress:
		c.InProgress += n
	case TaskStatusDone:
		c.Done += n
	}
	c.Total += n
}
