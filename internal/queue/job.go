package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeTagStatistics recomputes one user's per-tag usage counts.
	JobTypeTagStatistics JobType = "tag_statistics"
)

// DefaultMaxRetries is how often a failing job is retried before it is dead-lettered.
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	NotBefore  *time.Time `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time `json:"not_after,omitempty"`  // nil = never expires
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewJob creates a job for userID, due immediately.
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}
}

// Delay postpones the job until d after now and returns it.
func (j *Job) Delay(now time.Time, d time.Duration) *Job {
	at := now.Add(d).UTC()
	j.NotBefore = &at
	return j
}

// Wait returns how long until the job may run; zero or less means now.
func (j *Job) Wait(now time.Time) time.Duration {
	if j.NotBefore == nil {
		return 0
	}
	return j.NotBefore.Sub(now)
}

// ShouldProcess reports whether the job is due and not expired at now.
func (j *Job) ShouldProcess(now time.Time) bool {
	return j.Wait(now) <= 0 && !j.IsExpired(now)
}

// IsExpired reports whether the job's NotAfter has passed.
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// RetryBackoff returns the delay before retry n (1-based): 2s, 4s, 8s, capped at a minute.
func RetryBackoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := time.Second << n
	if d > time.Minute || d <= 0 {
		return time.Minute
	}
	return d
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
