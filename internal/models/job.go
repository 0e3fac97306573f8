package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobStatus represents the current state of a job in the queue
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobTypeProvisionRetry retries the router write for a payment that was
// verified and reserved but whose voucher never reached the router.
// Payload keys: reference, plan_id, code, contact.
const JobTypeProvisionRetry = "provision_retry"

// Job represents an asynchronous job in the queue
type Job struct {
	ID           int64      `json:"id"`
	JobType      string     `json:"job_type"`
	Payload      JSONB      `json:"payload"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	LastError    *string    `json:"last_error,omitempty"`
	RetryAfter   *time.Time `json:"retry_after,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	WorkerID     *string    `json:"worker_id,omitempty"`
}

// IsValid checks if the job is in a valid state for enqueueing
func (j *Job) IsValid() error {
	if j.JobType == "" {
		return errors.New("job_type is required")
	}
	if j.MaxAttempts <= 0 {
		return errors.New("max_attempts must be positive")
	}
	return nil
}

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = JSONB{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into JSONB", value)
	}

	return json.Unmarshal(bytes, j)
}

// GetString returns the payload value for key as a string, or "" when absent
// or not a string.
func (j JSONB) GetString(key string) string {
	v, _ := j[key].(string)
	return v
}

// JobStats holds statistics about the job queue
type JobStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}
