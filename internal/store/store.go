// Package store defines the record store contract used by the pipeline and an in-memory implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/foodtruck-agent/internal/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrJobNotClaimable is returned when a job is not pending and cannot be claimed.
var ErrJobNotClaimable = errors.New("job is not pending")

// ErrDuplicateURL is returned when a discovered URL is already queued in a live state.
var ErrDuplicateURL = errors.New("discovered url already queued")

// TruckStore persists canonical truck records.
type TruckStore interface {
	CreateTruck(ctx context.Context, truck *types.Truck) (*types.Truck, error)
	UpdateTruck(ctx context.Context, id uuid.UUID, truck *types.Truck) (*types.Truck, error)
	GetTruck(ctx context.Context, id uuid.UUID) (*types.Truck, error)
	ListTrucks(ctx context.Context, limit, offset int) ([]types.Truck, int, error)
	ListTrucksByRadius(ctx context.Context, lat, lng, radiusKm float64) ([]types.Truck, error)
	ListTruckSourceURLs(ctx context.Context) ([]string, error)
}

// JobUpdate carries the fields written alongside a status transition.
type JobUpdate struct {
	Errors        []string
	DataCollected map[string]any
	CompletedAt   *time.Time
}

// RetryOutcome reports the result of an atomic retry attempt.
type RetryOutcome struct {
	Requeued   bool
	RetryCount int
	MaxRetries int
}

// JobStore persists scraping jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *types.Job) (*types.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	// ListJobsByStatus orders by priority descending, then scheduled_at ascending.
	ListJobsByStatus(ctx context.Context, status types.JobStatus, limit int) ([]types.Job, error)
	// ClaimJob moves a pending job to running and sets started_at in one step.
	ClaimJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status types.JobStatus, update JobUpdate) error
	// RetryJob re-queues a failed job when retry_count < max_retries, incrementing
	// retry_count in the same step. Jobs at the limit are left untouched.
	RetryJob(ctx context.Context, id uuid.UUID) (RetryOutcome, error)
}

// DiscoveryStore persists discovered URLs.
type DiscoveryStore interface {
	// InsertDiscoveredURL queues u as new. A URL previously marked irrelevant is
	// reopened in place; any other existing URL fails with ErrDuplicateURL.
	InsertDiscoveredURL(ctx context.Context, u *types.DiscoveredURL) error
	// ListDiscoveredURLs returns URLs in any of the given statuses, or all URLs when none are given.
	ListDiscoveredURLs(ctx context.Context, statuses ...types.DiscoveredURLStatus) ([]types.DiscoveredURL, error)
	UpdateDiscoveredURLStatus(ctx context.Context, id uuid.UUID, status types.DiscoveredURLStatus, notes string) error
}

// Store is the full record store.
type Store interface {
	TruckStore
	JobStore
	DiscoveryStore
}
