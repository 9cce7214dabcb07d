package notifications

import (
	"context"
	"sync/atomic"

	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Push event names sent to clients
const (
	EventNotification         = "notification"
	EventNotificationRead     = "notification-read"
	EventNotificationsAllRead = "notifications-read-all"
	EventNotificationDeleted  = "notification-deleted"
	EventAchievement          = "achievement"
)

// DefaultQueueSize bounds the number of undelivered events
const DefaultQueueSize = 256

// Event is a push addressed to every live connection of one user
type Event struct {
	UserID  uuid.UUID `json:"-"`
	Name    string    `json:"event"`
	Payload any       `json:"data"`
}

// Publisher delivers events to connected clients
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Dispatcher decouples event producers from delivery with a bounded queue.
// Events are dropped when the queue is full or delivery fails; clients
// reconcile through the list endpoint.
type Dispatcher struct {
	queue     chan Event
	publisher Publisher
	log       *zap.Logger
	dropped   atomic.Int64
}

// NewDispatcher creates a dispatcher. Call Run to start delivering.
func NewDispatcher(publisher Publisher, queueSize int, log *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		queue:     make(chan Event, queueSize),
		publisher: publisher,
		log:       log,
	}
}

// Emit queues an event without blocking and reports whether it was accepted
func (d *Dispatcher) Emit(ev Event) bool {
	select {
	case d.queue <- ev:
		return true
	default:
		d.dropped.Add(1)
		metrics.RecordNotificationEvent(ev.Name, "dropped")
		d.log.Warn("notification_event_dropped_queue_full",
			zap.String("user_id", ev.UserID.String()),
			zap.String("event", ev.Name),
		)
		return false
	}
}

// Dropped returns the number of events discarded because the queue was full
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers queued events until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		metrics.RecordNotificationEvent(ev.Name, "failed")
		d.log.Debug("notification_event_delivery_failed",
			zap.String("user_id", ev.UserID.String()),
			zap.String("event", ev.Name),
			zap.Error(err),
		)
		return
	}
	metrics.RecordNotificationEvent(ev.Name, "delivered")
}
