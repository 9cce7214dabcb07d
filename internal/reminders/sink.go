package reminders

import (
	"context"
	"fmt"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/notifications"
	"github.com/devboard/devboard-api/internal/queue"
	"github.com/google/uuid"
)

// Sink receives reminders that fired
type Sink interface {
	Deliver(ctx context.Context, userID uuid.UUID, n *models.Notification) error
}

// StoreSink writes reminders straight into the in-process notification service
type StoreSink struct {
	service *notifications.Service
}

// NewStoreSink creates a sink for evaluators running inside the API server
func NewStoreSink(service *notifications.Service) *StoreSink {
	return &StoreSink{service: service}
}

// Deliver stores and pushes the notification
func (s *StoreSink) Deliver(ctx context.Context, userID uuid.UUID, n *models.Notification) error {
	s.service.Send(ctx, userID, n)
	return nil
}

// QueueSink publishes reminders as delivery jobs for the server to store
type QueueSink struct {
	queue queue.Enqueuer
}

// NewQueueSink creates a sink for evaluators running in the worker
func NewQueueSink(q queue.Enqueuer) *QueueSink {
	return &QueueSink{queue: q}
}

// Deliver enqueues a notification_delivery job
func (s *QueueSink) Deliver(ctx context.Context, userID uuid.UUID, n *models.Notification) error {
	if err := s.queue.Enqueue(ctx, queue.NewNotificationDeliveryJob(userID, n)); err != nil {
		return fmt.Errorf("failed to enqueue notification delivery: %w", err)
	}
	return nil
}
