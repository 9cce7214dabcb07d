package models

import (
	"testing"
	"time"
)

func TestTask_SetStatus_MaintainsCompletedAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	task := &Task{Status: TaskStatusTodo}

	task.SetStatus(TaskStatusInProgress, now)
	if task.CompletedAt != nil {
		t.Errorf("Expected nil completed_at for inProgress, got %v", task.CompletedAt)
	}

	task.SetStatus(TaskStatusDone, now)
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Fatalf("Expected completed_at %v, got %v", now, task.CompletedAt)
	}

	// Re-applying done must not move the timestamp.
	task.SetStatus(TaskStatusDone, now.Add(time.Hour))
	if !task.CompletedAt.Equal(now) {
		t.Errorf("Expected completed_at to stay %v, got %v", now, task.CompletedAt)
	}

	task.SetStatus(TaskStatusTodo, now)
	if task.CompletedAt != nil {
		t.Errorf("Expected completed_at cleared on reopen, got %v", task.CompletedAt)
	}
}

func TestTask_IsOverdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: TaskStatusTodo}, false},
		{"past due open", Task{Status: TaskStatusTodo, DueDate: &past}, true},
		{"past due done", Task{Status: TaskStatusDone, DueDate: &past}, false},
		{"future due", Task{Status: TaskStatusInProgress, DueDate: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.task.IsOverdue(now); got != tt.want {
				t.Errorf("Expected IsOverdue %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEnumValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		check func(string) bool
		value string
		valid bool
	}{
		{"status todo", ValidTaskStatus, "todo", true},
		{"status inProgress", ValidTaskStatus, "inProgress", true},
		{"status done", ValidTaskStatus, "done", true},
		{"status invalid", ValidTaskStatus, "completed", false},
		{"priority high", ValidPriority, "high", true},
		{"priority urgent is not a task priority", ValidPriority, "urgent", false},
		{"notification priority urgent", ValidNotificationPriority, "urgent", true},
		{"notification type break", ValidNotificationType, "break", true},
		{"notification type invalid", ValidNotificationType, "alert", false},
		{"action snooze", ValidActionKind, "snooze-reminder", true},
		{"action invalid", ValidActionKind, "link", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.check(tt.value); got != tt.valid {
				t.Errorf("Expected %v for %q, got %v", tt.valid, tt.value, got)
			}
		})
	}
}

func TestDefaultNotificationSettings(t *testing.T) {
	t.Parallel()

	s := DefaultNotificationSettings()
	if s.Schedule.QuietHoursStart != "22:00" || s.Schedule.QuietHoursEnd != "08:00" {
		t.Errorf("Expected quiet hours 22:00-08:00, got %s-%s", s.Schedule.QuietHoursStart, s.Schedule.QuietHoursEnd)
	}
	if len(s.Schedule.WorkingDays) != 5 {
		t.Errorf("Expected 5 working days, got %d", len(s.Schedule.WorkingDays))
	}
	if !s.Push.Enabled || !s.Email.Enabled {
		t.Error("Expected push and email enabled by default")
	}
}
