// Package types provides type definitions for structured data used throughout the food truck pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a scraping job.
type JobStatus string

// Job status values
const (
	JobStatusPending           JobStatus = "pending"
	JobStatusRunning           JobStatus = "running"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusCompletedWithData JobStatus = "completed_with_data"
	JobStatusFailed            JobStatus = "failed"
)

// JobType describes how a job was created.
type JobType string

// Job type values
const (
	JobTypeWebsiteAuto       JobType = "website-auto"
	JobTypeManual            JobType = "manual"
	JobTypeDiscoveryFollowup JobType = "discovery-followup"
)

// DefaultMaxRetries is applied when a job is created without an explicit limit.
const DefaultMaxRetries = 3

// Keys used in Job.DataCollected
const (
	DataKeyTruckID         = "truck_id"
	DataKeyAction          = "action"
	DataKeyDiscoveredURLID = "discovered_url_id"
	DataKeyPayload         = "payload"
	DataKeyReason          = "reason"
)

// Job represents one unit of acquisition work.
type Job struct {
	ID            uuid.UUID      `json:"id"`
	TargetURL     string         `json:"target_url,omitempty"`
	JobType       JobType        `json:"job_type"`
	Status        JobStatus      `json:"status"`
	Priority      int            `json:"priority"`
	ScheduledAt   time.Time      `json:"scheduled_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	RetryCount    int            `json:"retry_count"`
	MaxRetries    int            `json:"max_retries"`
	Errors        []string       `json:"errors"`
	DataCollected map[string]any `json:"data_collected,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CanRetry reports whether a failed job still has retries left.
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// IsTerminal returns true if no further state transitions are possible.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusCompletedWithData:
		return true
	case JobStatusFailed:
		return j.RetryCount >= j.MaxRetries
	default:
		return false
	}
}

// DiscoveredURLID returns the discovered URL this job was created from, if any.
func (j *Job) DiscoveredURLID() (uuid.UUID, bool) {
	if j.DataCollected == nil {
		return uuid.Nil, false
	}
	raw, ok := j.DataCollected[DataKeyDiscoveredURLID]
	if !ok {
		return uuid.Nil, false
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	default:
		return uuid.Nil, false
	}
}

// CreateJobRequest is the input for submitting a new job.
type CreateJobRequest struct {
	TargetURL  string  `json:"target_url" validate:"required,url"`
	JobType    JobType `json:"job_type,omitempty" validate:"omitempty,oneof=website-auto manual discovery-followup"`
	Priority   int     `json:"priority,omitempty" validate:"gte=0,lte=100"`
	MaxRetries int     `json:"max_retries,omitempty" validate:"gte=0,lte=10"`
}

// Validate validates the CreateJobRequest using the validator.
func (r *CreateJobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
