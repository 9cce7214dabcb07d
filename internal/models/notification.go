package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies what a notification is about
type NotificationType string

const (
	NotificationTypeTask        NotificationType = "task"
	NotificationTypeDeadline    NotificationType = "deadline"
	NotificationTypeReminder    NotificationType = "reminder"
	NotificationTypeMeeting     NotificationType = "meeting"
	NotificationTypeBreak       NotificationType = "break"
	NotificationTypeAchievement NotificationType = "achievement"
	NotificationTypeSystem      NotificationType = "system"
)

// NotificationPriority ranks notifications; urgent is above the task priorities
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

// ActionKind is what the client should do when a notification action is chosen
type ActionKind string

const (
	ActionViewTask       ActionKind = "view-task"
	ActionCompleteTask   ActionKind = "complete-task"
	ActionStartTask      ActionKind = "start-task"
	ActionSnoozeReminder ActionKind = "snooze-reminder"
	ActionStartBreak     ActionKind = "start-break"
	ActionExtendDeadline ActionKind = "extend-deadline"
	ActionRescheduleTask ActionKind = "reschedule-task"
	ActionRemindLater    ActionKind = "remind-later"
)

// NotificationAction is a button attached to a notification
type NotificationAction struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Kind   ActionKind `json:"action"`
	TaskID *uuid.UUID `json:"task_id,omitempty"`
}

// Notification is a per-user smart notification. Read only ever moves from false to true.
type Notification struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"user_id"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Priority  NotificationPriority `json:"priority"`
	Read      bool                 `json:"read"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	DueTime   *time.Time           `json:"due_time,omitempty"`
	Actions   []NotificationAction `json:"actions,omitempty"`
}

// ValidNotificationType reports whether s is a known notification type
func ValidNotificationType(s string) bool {
	switch NotificationType(s) {
	case NotificationTypeTask, NotificationTypeDeadline, NotificationTypeReminder, NotificationTypeMeeting,
		NotificationTypeBreak, NotificationTypeAchievement, NotificationTypeSystem:
		return true
	}
	return false
}

// ValidNotificationPriority reports whether s is a known notification priority
func ValidNotificationPriority(s string) bool {
	switch NotificationPriority(s) {
	case NotificationPriorityLow, NotificationPriorityMedium, NotificationPriorityHigh, NotificationPriorityUrgent:
		return true
	}
	return false
}

// ValidActionKind reports whether s is a known action kind
func ValidActionKind(s string) bool {
	switch ActionKind(s) {
	case ActionViewTask, ActionCompleteTask, ActionStartTask, ActionSnoozeReminder,
		ActionStartBreak, ActionExtendDeadline, ActionRescheduleTask, ActionRemindLater:
		return true
	}
	return false
}

// EmailSettings controls which notifications are mailed
type EmailSettings struct {
	Enabled       bool `json:"enabled"`
	TaskReminders bool `json:"task_reminders"`
	Deadlines     bool `json:"deadlines"`
	Achievements  bool `json:"achievements"`
	WeeklyReport  bool `json:"weekly_report"`
}

// PushSettings controls which notifications are pushed to live clients
type PushSettings struct {
	Enabled       bool `json:"enabled"`
	TaskReminders bool `json:"task_reminders"`
	Deadlines     bool `json:"deadlines"`
	Achievements  bool `json:"achievements"`
	Breaks        bool `json:"breaks"`
}

// ScheduleSettings holds quiet hours (HH:MM) and working days (0=Sunday)
type ScheduleSettings struct {
	QuietHoursStart string `json:"quiet_hours_start"`
	QuietHoursEnd   string `json:"quiet_hours_end"`
	WorkingDays     []int  `json:"working_days"`
}

// NotificationSettings are a user's notification preferences
type NotificationSettings struct {
	Email    EmailSettings    `json:"email"`
	Push     PushSettings     `json:"push"`
	Schedule ScheduleSettings `json:"schedule"`
}

// DefaultNotificationSettings returns the settings a user starts with
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Email: EmailSettings{
			Enabled:       true,
			TaskReminders: true,
			Deadlines:     true,
			Achievements:  true,
			WeeklyReport:  true,
		},
		Push: PushSettings{
			Enabled:       true,
			TaskReminders: true,
			Deadlines:     true,
			Achievements:  true,
			Breaks:        true,
		},
		Schedule: ScheduleSettings{
			QuietHoursStart: "22:00",
			QuietHoursEnd:   "08:00",
			WorkingDays:     []int{1, 2, 3, 4, 5},
		},
	}
}

// WantsTaskReminders reports whether any channel still accepts task or deadline reminders
func (s NotificationSettings) WantsTaskReminders() bool {
	email := s.Email.Enabled && (s.Email.TaskReminders || s.Email.Deadlines)
	push := s.Push.Enabled && (s.Push.TaskReminders || s.Push.Deadlines)
	return email || push
}
