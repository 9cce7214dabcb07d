package notifications

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the single write path into the store; every mutation also emits a push event
type Service struct {
	store      *Store
	dispatcher *Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires a store to a dispatcher. dispatcher may be nil to disable pushes.
func NewService(store *Store, dispatcher *Dispatcher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, dispatcher: dispatcher, log: log, now: time.Now}
}

func (s *Service) emit(userID uuid.UUID, name string, payload any) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Emit(Event{UserID: userID, Name: name, Payload: payload})
}

// Send stores a notification and pushes it
func (s *Service) Send(_ context.Context, userID uuid.UUID, n *models.Notification) *models.Notification {
	stored := s.store.Add(userID, n)
	metrics.NotificationsCreated.WithLabelValues(string(stored.Type)).Inc()
	s.log.Debug("notification_created",
		zap.String("user_id", userID.String()),
		zap.String("notification_id", stored.ID.String()),
		zap.String("type", string(stored.Type)),
		zap.String("priority", string(stored.Priority)),
	)
	name := EventNotification
	if stored.Type == models.NotificationTypeAchievement {
		name = EventAchievement
	}
	s.emit(userID, name, stored)
	return stored
}

// List returns the user's notifications newest first
func (s *Service) List(_ context.Context, userID uuid.UUID, opts ListOptions) ListResult {
	return s.store.List(userID, opts)
}

// MarkRead marks one notification read. Repeating it is a no-op and emits nothing.
func (s *Service) MarkRead(_ context.Context, userID, id uuid.UUID) (*models.Notification, error) {
	n, changed, err := s.store.MarkRead(userID, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.emit(userID, EventNotificationRead, map[string]string{"id": id.String()})
	}
	return n, nil
}

// MarkAllRead marks every notification read and returns how many changed
func (s *Service) MarkAllRead(_ context.Context, userID uuid.UUID) int {
	changed := s.store.MarkAllRead(userID)
	if changed > 0 {
		s.emit(userID, EventNotificationsAllRead, map[string]int{"count": changed})
	}
	return changed
}

// Delete removes a notification
func (s *Service) Delete(_ context.Context, userID, id uuid.UUID) error {
	if err := s.store.Delete(userID, id); err != nil {
		return err
	}
	s.emit(userID, EventNotificationDeleted, map[string]string{"id": id.String()})
	return nil
}

// Settings returns the user's notification settings
func (s *Service) Settings(_ context.Context, userID uuid.UUID) models.NotificationSettings {
	return s.store.Settings(userID)
}

// UpdateSettings replaces the user's notification settings
func (s *Service) UpdateSettings(_ context.Context, userID uuid.UUID, settings models.NotificationSettings) models.NotificationSettings {
	return s.store.UpdateSettings(userID, settings)
}

// SendTaskReminder builds a reminder whose urgency depends on how far away the due date is
func (s *Service) SendTaskReminder(ctx context.Context, userID, taskID uuid.UUID, title string, due time.Time) *models.Notification {
	hours := due.Sub(s.now()).Hours()
	priority := models.NotificationPriorityMedium
	message := fmt.Sprintf("Don't forget about %q", title)
	switch {
	case hours < 1:
		priority = models.NotificationPriorityUrgent
		message = fmt.Sprintf("%q is due in less than 1 hour!", title)
	case hours < 24:
		priority = models.NotificationPriorityHigh
		message = fmt.Sprintf("%q is due tomorrow", title)
	case hours < 72:
		message = fmt.Sprintf("%q is due in %d days", title, int(math.Ceil(hours/24)))
	}

	id := taskID
	return s.Send(ctx, userID, &models.Notification{
		Type:     models.NotificationTypeTask,
		Title:    "Task Reminder",
		Message:  message,
		Priority: priority,
		DueTime:  &due,
		Actions: []models.NotificationAction{
			{ID: "view", Label: "View Task", Kind: models.ActionViewTask, TaskID: &id},
			{ID: "complete", Label: "Mark Complete", Kind: models.ActionCompleteTask, TaskID: &id},
		},
	})
}

// SendAchievement stores and pushes an achievement notification
func (s *Service) SendAchievement(ctx context.Context, userID uuid.UUID, title, description string) *models.Notification {
	return s.Send(ctx, userID, &models.Notification{
		Type:     models.NotificationTypeAchievement,
		Title:    "Achievement Unlocked!",
		Message:  fmt.Sprintf("%s: %s", title, description),
		Priority: models.NotificationPriorityHigh,
	})
}
