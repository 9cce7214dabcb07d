// Package reminders decides when a task with a due date deserves a reminder
// and delivers it through a Sink.
package reminders

import (
	"fmt"
	"math"
	"time"

	"github.com/devboard/devboard-api/internal/models"
)

// Band is a minutes-until-due range that selects reminder urgency
type Band string

const (
	BandNone    Band = ""
	BandOverdue Band = "overdue"
	BandUrgent  Band = "urgent"
	BandHigh    Band = "high"
)

const (
	urgentMinutes = 15
	highMinutes   = 60
)

// BandFor classifies the time left until due. Minutes are fractional, so a task
// due in 15m30s is in the high band.
func BandFor(now, due time.Time) Band {
	minutes := due.Sub(now).Minutes()
	switch {
	case minutes <= 0:
		return BandOverdue
	case minutes <= urgentMinutes:
		return BandUrgent
	case minutes <= highMinutes:
		return BandHigh
	default:
		return BandNone
	}
}

// Priority maps a band to the notification priority it fires with
func (b Band) Priority() models.NotificationPriority {
	if b == BandHigh {
		return models.NotificationPriorityHigh
	}
	return models.NotificationPriorityUrgent
}

// taskNotification builds the reminder for a task in the given band
func taskNotification(task *models.Task, band Band, now time.Time) *models.Notification {
	due := *task.DueDate
	taskID := task.ID
	n := &models.Notification{
		Priority: band.Priority(),
		DueTime:  &due,
		Actions: []models.NotificationAction{
			{ID: "view", Label: "View Task", Kind: models.ActionViewTask, TaskID: &taskID},
			{ID: "complete", Label: "Mark Complete", Kind: models.ActionCompleteTask, TaskID: &taskID},
		},
	}

	if band == BandOverdue {
		n.Type = models.NotificationTypeDeadline
		n.Title = "Task Overdue"
		n.Message = fmt.Sprintf("%q is overdue", task.Title)
		n.Actions = append(n.Actions, models.NotificationAction{
			ID: "extend", Label: "Extend Deadline", Kind: models.ActionExtendDeadline, TaskID: &taskID,
		})
		return n
	}

	n.Type = models.NotificationTypeTask
	n.Title = "Task Due Soon"
	n.Message = fmt.Sprintf("%q is due in %s", task.Title, minutesLabel(due.Sub(now)))
	n.Actions = append(n.Actions, models.NotificationAction{
		ID: "snooze", Label: "Snooze", Kind: models.ActionSnoozeReminder, TaskID: &taskID,
	})
	return n
}

// mentionNotification builds the reminder for a time mentioned in a task description
func mentionNotification(task *models.Task, band Band, mention, now time.Time) *models.Notification {
	taskID := task.ID
	at := mention
	n := &models.Notification{
		Type:     models.NotificationTypeReminder,
		Title:    "Upcoming",
		Priority: band.Priority(),
		DueTime:  &at,
		Actions: []models.NotificationAction{
			{ID: "view", Label: "View Task", Kind: models.ActionViewTask, TaskID: &taskID},
			{ID: "later", Label: "Remind Later", Kind: models.ActionRemindLater, TaskID: &taskID},
		},
	}
	if band == BandOverdue {
		n.Message = fmt.Sprintf("%q was scheduled for %s", task.Title, mention.Format("15:04"))
	} else {
		n.Message = fmt.Sprintf("%q starts at %s, in %s", task.Title, mention.Format("15:04"), minutesLabel(mention.Sub(now)))
	}
	return n
}

func minutesLabel(d time.Duration) string {
	m := int(math.Ceil(d.Minutes()))
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
