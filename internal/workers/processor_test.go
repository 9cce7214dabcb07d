package workers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devboard/devboard-api/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockMessage is a mock implementation of MessageInterface
type mockMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

func (m *mockMessage) Context() context.Context {
	return context.Background()
}

var _ queue.MessageInterface = (*mockMessage)(nil)

type mockEnqueuer struct {
	mu          sync.Mutex
	jobs        []*queue.Job
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func newJob(jobType queue.JobType) *queue.Job {
	return queue.NewJob(jobType, uuid.New(), nil)
}

func TestProcessor_ProcessJob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		job          func() *queue.Job
		handler      HandlerFunc
		enqueueErr   error
		expectErr    bool
		wantAck      bool
		wantNack     bool
		wantRequeue  bool
		wantEnqueued int
	}{
		{
			name:    "success acks",
			job:     func() *queue.Job { return newJob(queue.JobTypeTimeMentionReminder) },
			handler: func(ctx context.Context, job *queue.Job) error { return nil },
			wantAck: true,
		},
		{
			name: "unknown type dead-letters",
			job: func() *queue.Job {
				return newJob(queue.JobType("mystery"))
			},
			expectErr: true,
			wantNack:  true,
		},
		{
			name: "transient failure re-enqueues with delay",
			job:  func() *queue.Job { return newJob(queue.JobTypeTimeMentionReminder) },
			handler: func(ctx context.Context, job *queue.Job) error {
				return errors.New("db timeout")
			},
			expectErr:    true,
			wantAck:      true,
			wantEnqueued: 1,
		},
		{
			name: "re-enqueue failure falls back to broker requeue",
			job:  func() *queue.Job { return newJob(queue.JobTypeTimeMentionReminder) },
			handler: func(ctx context.Context, job *queue.Job) error {
				return errors.New("db timeout")
			},
			enqueueErr:  errors.New("channel closed"),
			expectErr:   true,
			wantNack:    true,
			wantRequeue: true,
		},
		{
			name: "permanent failure dead-letters",
			job:  func() *queue.Job { return newJob(queue.JobTypeTimeMentionReminder) },
			handler: func(ctx context.Context, job *queue.Job) error {
				return Permanent(errors.New("task does not belong to user"))
			},
			expectErr: true,
			wantNack:  true,
		},
		{
			name: "retries exhausted dead-letters",
			job: func() *queue.Job {
				j := newJob(queue.JobTypeTimeMentionReminder)
				j.RetryCount = j.MaxRetries
				return j
			},
			handler: func(ctx context.Context, job *queue.Job) error {
				return errors.New("still failing")
			},
			expectErr: true,
			wantNack:  true,
		},
		{
			name: "job delivered early is acked without running",
			job: func() *queue.Job {
				j := newJob(queue.JobTypeTimeMentionReminder)
				later := time.Now().Add(time.Hour)
				j.NotBefore = &later
				return j
			},
			handler: func(ctx context.Context, job *queue.Job) error {
				return errors.New("should not run")
			},
			wantAck: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			enq := &mockEnqueuer{enqueueFunc: func(ctx context.Context, job *queue.Job) error { return tt.enqueueErr }}
			p := NewProcessor(enq, zap.NewNop())
			if tt.handler != nil {
				p.Handle(queue.JobTypeTimeMentionReminder, tt.handler)
			}

			msg := &mockMessage{job: tt.job()}
			err := p.ProcessJob(context.Background(), msg)

			if tt.expectErr != (err != nil) {
				t.Fatalf("Expected error=%v, got %v", tt.expectErr, err)
			}
			if msg.acked != tt.wantAck {
				t.Errorf("Expected acked=%v, got %v", tt.wantAck, msg.acked)
			}
			if msg.nacked != tt.wantNack {
				t.Errorf("Expected nacked=%v, got %v", tt.wantNack, msg.nacked)
			}
			if msg.requeued != tt.wantRequeue {
				t.Errorf("Expected requeued=%v, got %v", tt.wantRequeue, msg.requeued)
			}
			if len(enq.jobs) != tt.wantEnqueued {
				t.Errorf("Expected %d re-enqueued jobs, got %d", tt.wantEnqueued, len(enq.jobs))
			}
		})
	}
}

func TestProcessor_RetryCarriesBackoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	enq := &mockEnqueuer{}
	p := NewProcessor(enq, zap.NewNop())
	p.now = func() time.Time { return now }
	p.Handle(queue.JobTypeNotificationDelivery, func(ctx context.Context, job *queue.Job) error {
		return errors.New("store unavailable")
	})

	job := newJob(queue.JobTypeNotificationDelivery)
	job.RetryCount = 1
	err := p.ProcessJob(context.Background(), &mockMessage{job: job})
	if err == nil || !strings.Contains(err.Error(), "will retry") {
		t.Fatalf("Expected retry error, got %v", err)
	}
	if len(enq.jobs) != 1 {
		t.Fatalf("Expected 1 re-enqueued job, got %d", len(enq.jobs))
	}

	retry := enq.jobs[0]
	if retry.RetryCount != 2 {
		t.Errorf("Expected retry count 2, got %d", retry.RetryCount)
	}
	if retry.ID != job.ID {
		t.Errorf("Expected job ID to be preserved")
	}
	if retry.NotBefore == nil || !retry.NotBefore.Equal(now.Add(10*time.Second)) {
		t.Errorf("Expected NotBefore %v, got %v", now.Add(10*time.Second), retry.NotBefore)
	}
	if job.RetryCount != 1 {
		t.Errorf("Expected original job to be untouched, got retry count %d", job.RetryCount)
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{3, 40 * time.Second},
		{20, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d): expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestProcessor_JobTypes(t *testing.T) {
	t.Parallel()

	p := NewProcessor(nil, nil)
	if len(p.JobTypes()) != 0 {
		t.Fatalf("Expected no job types, got %v", p.JobTypes())
	}
	p.Handle(queue.JobTypeNotificationDelivery, func(ctx context.Context, job *queue.Job) error { return nil })
	p.Handle(queue.JobTypeTimeMentionReminder, func(ctx context.Context, job *queue.Job) error { return nil })

	types := p.JobTypes()
	if len(types) != 2 || types[0] != queue.JobTypeTimeMentionReminder {
		t.Errorf("Expected job types in declaration order, got %v", types)
	}
}
