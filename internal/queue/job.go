package queue

import (
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeTimeMentionReminder re-evaluates a task when a time mentioned in its description approaches
	JobTypeTimeMentionReminder JobType = "time_mention_reminder"
	// JobTypeNotificationDelivery hands a worker-built notification to the server that owns the store
	JobTypeNotificationDelivery JobType = "notification_delivery"
)

// JobTypes lists every job type; each gets its own queue
var JobTypes = []JobType{JobTypeTimeMentionReminder, JobTypeNotificationDelivery}

// Job represents a job in the queue
type Job struct {
	ID           uuid.UUID            `json:"id"`
	Type         JobType              `json:"type"`
	UserID       uuid.UUID            `json:"user_id"`
	TaskID       *uuid.UUID           `json:"task_id,omitempty"`
	MentionAt    *time.Time           `json:"mention_at,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
	NotBefore    *time.Time           `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter     *time.Time           `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	CreatedAt    time.Time            `json:"created_at"`
	RetryCount   int                  `json:"retry_count"`
	MaxRetries   int                  `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, taskID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		TaskID:     taskID,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// NewTimeMentionJob schedules a reminder check for a task shortly before a mentioned time
func NewTimeMentionJob(userID, taskID uuid.UUID, mentionAt time.Time, lead time.Duration) *Job {
	job := NewJob(JobTypeTimeMentionReminder, userID, &taskID)
	job.MentionAt = &mentionAt
	notBefore := mentionAt.Add(-lead)
	job.NotBefore = &notBefore
	// a mention that has passed by more than an hour is no longer useful
	notAfter := mentionAt.Add(time.Hour)
	job.NotAfter = &notAfter
	return job
}

// NewNotificationDeliveryJob wraps a notification for delivery by the server
func NewNotificationDeliveryJob(userID uuid.UUID, n *models.Notification) *Job {
	job := NewJob(JobTypeNotificationDelivery, userID, nil)
	job.Notification = n
	return job
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	return j.shouldProcessAt(time.Now())
}

func (j *Job) shouldProcessAt(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
