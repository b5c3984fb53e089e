// Package jobs owns the scraping job state machine: submission, claiming,
// running the pipeline, and the retry path.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/pipeline"
	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// MissingTargetURLMessage is recorded on jobs that have no URL to fetch.
const MissingTargetURLMessage = "No target URL specified"

// Pipeline runs the Fetch, Extract and Persist stages.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request, onProgress pipeline.ProgressCallback) (*pipeline.Result, error)
}

// Config tunes the orchestrator.
type Config struct {
	MaxRetries int
	Workers    int
}

// DefaultConfig returns the default orchestrator settings.
func DefaultConfig() Config {
	return Config{MaxRetries: types.DefaultMaxRetries, Workers: 4}
}

// Orchestrator drives jobs through the pipeline.
type Orchestrator struct {
	jobs     store.JobStore
	urls     store.DiscoveryStore
	pipeline Pipeline
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator. urls may be nil when discovery is not used.
func NewOrchestrator(jobs store.JobStore, urls store.DiscoveryStore, p Pipeline, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = types.DefaultMaxRetries
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{jobs: jobs, urls: urls, pipeline: p, cfg: cfg, now: time.Now, logger: logger}
}

// SubmitJob validates req and stores a pending job. A zero MaxRetries uses the configured default.
func (o *Orchestrator) SubmitJob(ctx context.Context, req types.CreateJobRequest) (*types.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job request: %w", err)
	}

	job := &types.Job{
		TargetURL:  req.TargetURL,
		JobType:    req.JobType,
		Status:     types.JobStatusPending,
		Priority:   req.Priority,
		MaxRetries: req.MaxRetries,
		Errors:     []string{},
	}
	if job.JobType == "" {
		job.JobType = types.JobTypeManual
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = o.cfg.MaxRetries
	}

	created, err := o.jobs.CreateJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	o.logger.Info("Job submitted",
		zap.String("job_id", created.ID.String()),
		zap.String("url", created.TargetURL),
		zap.Int("priority", created.Priority))
	return created, nil
}

// ProcessJob claims a pending job and runs it to a final status. Stage failures are
// recorded on the job and trigger the retry path; the returned error only reports
// store failures or a job that could not be claimed.
func (o *Orchestrator) ProcessJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	job, err := o.jobs.ClaimJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", id, err)
	}
	logger := o.logger.With(zap.String("job_id", id.String()), zap.String("url", job.TargetURL))
	logger.Info("Processing job", zap.Int("retry_count", job.RetryCount))

	discoveredID, fromDiscovery := job.DiscoveredURLID()
	if fromDiscovery {
		o.markDiscovered(ctx, logger, discoveredID, types.DiscoveredProcessing, "")
	}

	if job.TargetURL == "" {
		if err := o.fail(ctx, job, MissingTargetURLMessage); err != nil {
			return nil, err
		}
		logger.Warn("Job has no target URL")
		return o.jobs.GetJob(ctx, id)
	}

	result, runErr := o.pipeline.Run(ctx, pipeline.Request{URL: job.TargetURL}, nil)
	if runErr != nil {
		return o.failAndRetry(ctx, logger, job, runErr.Error())
	}
	if failed := result.Failed(); failed != nil {
		return o.failAndRetry(ctx, logger, job, fmt.Sprintf("%s: %s", failed.Stage, failed.Error))
	}

	status, data := completion(result)
	completedAt := o.now()
	if err := o.jobs.UpdateJobStatus(ctx, id, status, store.JobUpdate{DataCollected: data, CompletedAt: &completedAt}); err != nil {
		return nil, fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	if fromDiscovery {
		o.markDiscovered(ctx, logger, discoveredID, types.DiscoveredProcessed, "")
	}
	logger.Info("Job completed", zap.String("status", string(status)), zap.Any("action", data[types.DataKeyAction]))
	return o.jobs.GetJob(ctx, id)
}

// completion maps a successful pipeline result to the job's final status and data.
func completion(result *pipeline.Result) (types.JobStatus, map[string]any) {
	out := result.Persisted()
	data := map[string]any{}
	if out == nil {
		return types.JobStatusCompleted, data
	}
	if out.Action != "" {
		data[types.DataKeyAction] = string(out.Action)
	}
	if out.TruckID != nil {
		data[types.DataKeyTruckID] = out.TruckID.String()
		return types.JobStatusCompletedWithData, data
	}
	data[types.DataKeyPayload] = out.Payload
	if out.Reason != "" {
		data[types.DataKeyReason] = out.Reason
	}
	return types.JobStatusCompleted, data
}

func (o *Orchestrator) fail(ctx context.Context, job *types.Job, message string) error {
	errs := append(append([]string{}, job.Errors...), message)
	if err := o.jobs.UpdateJobStatus(ctx, job.ID, types.JobStatusFailed, store.JobUpdate{Errors: errs}); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}
	return nil
}

func (o *Orchestrator) failAndRetry(ctx context.Context, logger *zap.Logger, job *types.Job, message string) (*types.Job, error) {
	logger.Warn("Job failed", zap.String("error", message))
	if err := o.fail(ctx, job, message); err != nil {
		return nil, err
	}
	outcome, err := o.retry(ctx, logger, job.ID)
	if err != nil {
		return nil, err
	}
	// An exhausted URL goes back to discovery instead of staying processing.
	if discoveredID, ok := job.DiscoveredURLID(); ok && !outcome.Requeued {
		o.markDiscovered(ctx, logger, discoveredID, types.DiscoveredIrrelevant,
			fmt.Sprintf("job %s exhausted retries: %s", job.ID, message))
	}
	return o.jobs.GetJob(ctx, job.ID)
}

// retry attempts the atomic failed -> pending transition and logs the outcome.
func (o *Orchestrator) retry(ctx context.Context, logger *zap.Logger, id uuid.UUID) (store.RetryOutcome, error) {
	outcome, err := o.jobs.RetryJob(ctx, id)
	if err != nil {
		return outcome, fmt.Errorf("failed to retry job %s: %w", id, err)
	}
	if outcome.Requeued {
		logger.Info("Job will be retried",
			zap.Int("retry_count", outcome.RetryCount),
			zap.Int("max_retries", outcome.MaxRetries))
	} else {
		logger.Warn("Job reached max retries",
			zap.Int("retry_count", outcome.RetryCount),
			zap.Int("max_retries", outcome.MaxRetries))
	}
	return outcome, nil
}

func (o *Orchestrator) markDiscovered(ctx context.Context, logger *zap.Logger, id uuid.UUID, status types.DiscoveredURLStatus, notes string) {
	if o.urls == nil {
		return
	}
	if err := o.urls.UpdateDiscoveredURLStatus(ctx, id, status, notes); err != nil {
		logger.Warn("Failed to update discovered URL",
			zap.String("discovered_url_id", id.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
