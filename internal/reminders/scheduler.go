package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/queue"
	"go.uber.org/zap"
)

// DefaultMentionLead is how long before a mentioned time the reminder job runs
const DefaultMentionLead = urgentMinutes * time.Minute

// MentionScheduler turns time mentions in task descriptions into delayed jobs
type MentionScheduler struct {
	queue  queue.Enqueuer
	lead   time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewMentionScheduler creates a scheduler publishing to q
func NewMentionScheduler(q queue.Enqueuer, lead time.Duration, logger *zap.Logger) *MentionScheduler {
	if lead <= 0 {
		lead = DefaultMentionLead
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentionScheduler{queue: q, lead: lead, logger: logger, now: time.Now}
}

// Schedule enqueues one time_mention_reminder job per mention found in the
// task's title and description and returns how many were scheduled.
func (s *MentionScheduler) Schedule(ctx context.Context, task *models.Task) (int, error) {
	if task == nil || task.IsDone() {
		return 0, nil
	}
	mentions := ScanTimeMentions(task.Title+"\n"+task.Description, s.now())
	for i, at := range mentions {
		if err := s.queue.Enqueue(ctx, queue.NewTimeMentionJob(task.UserID, task.ID, at, s.lead)); err != nil {
			return i, fmt.Errorf("failed to schedule time mention reminder: %w", err)
		}
	}
	if len(mentions) > 0 {
		s.logger.Debug("time_mentions_scheduled",
			zap.String("task_id", task.ID.String()),
			zap.Int("count", len(mentions)),
		)
	}
	return len(mentions), nil
}
