package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is how often Run evaluates
	DefaultInterval = 60 * time.Second
	// DefaultActivityWindow limits evaluation to users seen recently
	DefaultActivityWindow = 72 * time.Hour
)

// TaskSource loads the tasks the evaluator looks at
type TaskSource interface {
	// ListOpenDueBefore returns tasks that are not done and have a due date at or before the cutoff
	ListOpenDueBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*models.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// UserSource lists users whose tasks are monitored
type UserSource interface {
	GetActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// PassResult summarises one evaluation pass
type PassResult struct {
	Users      int
	Tasks      int
	Fired      int
	Suppressed int
}

// Evaluator emits reminders for tasks approaching or past their due date
type Evaluator struct {
	users     UserSource
	tasks     TaskSource
	sink      Sink
	watermark Watermark
	interval  time.Duration
	window    time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithWatermark makes each band fire once per task. Without it every pass
// re-fires while a task stays in band.
func WithWatermark(w Watermark) Option {
	return func(e *Evaluator) { e.watermark = w }
}

// WithInterval sets the Run tick
func WithInterval(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithActivityWindow sets how recently a user must have used the API to be monitored
func WithActivityWindow(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source used by Run and job handling
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator creates an evaluator
func NewEvaluator(users UserSource, tasks TaskSource, sink Sink, opts ...Option) *Evaluator {
	e := &Evaluator{
		users:    users,
		tasks:    tasks,
		sink:     sink,
		interval: DefaultInterval,
		window:   DefaultActivityWindow,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates immediately and then on every tick until ctx is cancelled
func (e *Evaluator) Run(ctx context.Context) error {
	e.logger.Info("reminder_evaluator_started",
		zap.Duration("interval", e.interval),
		zap.Bool("dedupe", e.watermark != nil),
	)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if _, err := e.Evaluate(ctx, e.now()); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("reminder_pass_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			e.logger.Info("reminder_evaluator_stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Evaluate runs one pass at the given instant. A failure for one user is logged
// and does not stop the pass.
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) (PassResult, error) {
	start := time.Now()
	defer func() { metrics.ReminderPassDuration.Observe(time.Since(start).Seconds()) }()

	var res PassResult
	users, err := e.users.GetActiveUsersSince(ctx, now.Add(-e.window))
	if err != nil {
		return res, fmt.Errorf("failed to list monitored users: %w", err)
	}
	res.Users = len(users)

	cutoff := now.Add(highMinutes * time.Minute)
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tasks, err := e.tasks.ListOpenDueBefore(ctx, userID, cutoff)
		if err != nil {
			e.logger.Warn("reminder_tasks_load_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			continue
		}
		for _, task := range tasks {
			res.Tasks++
			fired, suppressed := e.evaluateTask(ctx, task, now)
			if fired {
				res.Fired++
			}
			if suppressed {
				res.Suppressed++
			}
		}
	}

	e.logger.Debug("reminder_pass_completed",
		zap.Int("users", res.Users),
		zap.Int("tasks", res.Tasks),
		zap.Int("fired", res.Fired),
		zap.Int("suppressed", res.Suppressed),
	)
	return res, nil
}

func (e *Evaluator) evaluateTask(ctx context.Context, task *models.Task, now time.Time) (fired, suppressed bool) {
	if task.DueDate == nil || task.IsDone() {
		return false, false
	}
	band := BandFor(now, *task.DueDate)
	if band == BandNone {
		return false, false
	}
	return e.fire(ctx, task, band, *task.DueDate, taskNotification(task, band, now))
}

// fire claims the watermark if dedupe is on and hands the notification to the sink
func (e *Evaluator) fire(ctx context.Context, task *models.Task, band Band, target time.Time, n *models.Notification) (fired, suppressed bool) {
	if e.watermark != nil {
		ok, err := e.watermark.Claim(ctx, task.ID, band, target)
		if err != nil {
			e.logger.Warn("reminder_watermark_failed",
				zap.String("task_id", task.ID.String()),
				zap.Error(err),
			)
		}
		if !ok {
			metrics.RemindersSuppressed.WithLabelValues(string(band)).Inc()
			return false, true
		}
	}

	if err := e.sink.Deliver(ctx, task.UserID, n); err != nil {
		e.logger.Error("reminder_delivery_failed",
			zap.String("user_id", task.UserID.String()),
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
		return false, false
	}
	metrics.RemindersFired.WithLabelValues(string(band)).Inc()
	e.logger.Debug("reminder_fired",
		zap.String("user_id", task.UserID.String()),
		zap.String("task_id", task.ID.String()),
		zap.String("band", string(band)),
	)
	return true, false
}

// ErrInvalidJob marks mention jobs that can never succeed
var ErrInvalidJob = errors.New("invalid reminder job")

// ProcessTimeMentionJob re-checks a task when a time mentioned in its
// description approaches and fires through the same bands.
func (e *Evaluator) ProcessTimeMentionJob(ctx context.Context, job *queue.Job) error {
	if job.TaskID == nil || job.MentionAt == nil {
		return fmt.Errorf("%w: task_id and mention_at are required for %s jobs", ErrInvalidJob, job.Type)
	}

	task, err := e.tasks.GetByID(ctx, *job.TaskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task.UserID != job.UserID {
		return fmt.Errorf("%w: task does not belong to user", ErrInvalidJob)
	}
	if task.IsDone() {
		return nil
	}

	now := e.now()
	band := BandFor(now, *job.MentionAt)
	if band == BandNone {
		// Delivered early, e.g. without the delayed exchange
		return nil
	}
	e.fire(ctx, task, band, *job.MentionAt, mentionNotification(task, band, *job.MentionAt, now))
	return nil
}
