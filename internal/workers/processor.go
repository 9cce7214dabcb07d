package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/queue"
	"github.com/devboard/devboard-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HandlerFunc processes one job
type HandlerFunc func(ctx context.Context, job *queue.Job) error

// ErrPermanent marks failures that retrying cannot fix
var ErrPermanent = errors.New("permanent job failure")

// Permanent wraps err so the processor sends the job straight to the DLQ
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

const (
	baseRetryDelay = 5 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

// retryDelay doubles per attempt, capped
func retryDelay(attempt int) time.Duration {
	d := baseRetryDelay
	for i := 0; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// Processor dispatches queue messages to handlers by job type
type Processor struct {
	handlers map[queue.JobType]HandlerFunc
	requeue  queue.Enqueuer // For re-enqueueing failed jobs with delays
	logger   *zap.Logger
	now      func() time.Time
}

// NewProcessor creates a processor. requeue may be nil, in which case
// retries fall back to an immediate broker requeue.
func NewProcessor(requeue queue.Enqueuer, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		handlers: make(map[queue.JobType]HandlerFunc),
		requeue:  requeue,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle registers the handler for a job type
func (p *Processor) Handle(jobType queue.JobType, h HandlerFunc) {
	p.handlers[jobType] = h
}

// JobTypes lists the registered job types
func (p *Processor) JobTypes() []queue.JobType {
	types := make([]queue.JobType, 0, len(p.handlers))
	for _, t := range queue.JobTypes {
		if _, ok := p.handlers[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// ProcessJob processes a message based on its job type and settles it
func (p *Processor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	ctx, span := telemetry.Tracer().Start(msg.Context(), "job."+string(job.Type),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.Int("job.retry_count", job.RetryCount),
		),
	)
	defer span.End()

	handler, ok := p.handlers[job.Type]
	if !ok {
		// Unknown job type, send to DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		metrics.RecordQueueJob(string(job.Type), "unknown")
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	// Delivered early, e.g. when the delayed exchange plugin is unavailable
	if !job.ShouldProcess() {
		p.logger.Info("job_not_ready_dropped",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		metrics.RecordQueueJob(string(job.Type), "early")
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil
	}

	if err := handler(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return p.handleJobError(ctx, msg, job, err)
	}

	metrics.RecordQueueJob(string(job.Type), "ok")
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries with a delayed re-enqueue, or dead-letters the job
func (p *Processor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err),
	}

	if errors.Is(err, ErrPermanent) || !job.CanRetry() {
		p.logger.Error("job_failed_sending_to_dlq", fields...)
		metrics.RecordQueueJob(string(job.Type), "dead_lettered")
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("failed_to_nack_job_to_dlq", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (dead-lettered): %w", err)
	}

	metrics.RecordQueueJob(string(job.Type), "retried")
	if p.requeue != nil {
		retry := *job
		retry.IncrementRetry()
		notBefore := p.now().Add(retryDelay(job.RetryCount))
		retry.NotBefore = &notBefore

		enqueueErr := p.requeue.Enqueue(ctx, &retry)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				p.logger.Warn("failed_to_ack_job_after_requeue", zap.Error(ackErr))
			}
			p.logger.Warn("job_failed_requeued", append(fields, zap.Time("not_before", notBefore))...)
			return fmt.Errorf("job failed (will retry): %w", err)
		}
		p.logger.Warn("failed_to_requeue_job", zap.Error(enqueueErr))
	}

	// Fallback: broker requeue (immediate retry)
	if nackErr := msg.Nack(true); nackErr != nil {
		p.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
	}
	p.logger.Warn("job_failed_nacked", fields...)
	return fmt.Errorf("job failed (will retry): %w", err)
}

// Consume processes every registered job type from q until ctx is cancelled
func (p *Processor) Consume(ctx context.Context, q queue.JobQueue, prefetch int) error {
	types := p.JobTypes()
	if len(types) == 0 {
		return errors.New("no job handlers registered")
	}

	done := make(chan struct{}, len(types))
	for _, jobType := range types {
		msgChan, errChan, err := q.Consume(ctx, jobType, prefetch)
		if err != nil {
			return fmt.Errorf("failed to consume %s: %w", jobType, err)
		}
		p.logger.Info("consuming_jobs", zap.String("job_type", string(jobType)), zap.Int("prefetch", prefetch))

		go func() {
			defer func() { done <- struct{}{} }()
			p.drain(ctx, msgChan, errChan)
		}()
	}

	for range types {
		<-done
	}
	return ctx.Err()
}

func (p *Processor) drain(ctx context.Context, msgChan <-chan *queue.Message, errChan <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			p.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgChan:
			if !ok {
				p.logger.Info("message_channel_closed")
				return
			}
			if err := p.ProcessJob(ctx, msg); err != nil {
				p.logger.Debug("job_processing_returned_error",
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.Error(err),
				)
			}
		}
	}
}
